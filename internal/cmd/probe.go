package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math/rand/v2"
	"net"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/Alia5/ds4dsu/dsu"
)

// Probe queries a running DSU server the way an emulator would.
type Probe struct {
	Addr    string        `help:"DSU server address" default:"127.0.0.1:26760" env:"DS4DSU_PROBE_ADDR"`
	Slots   int           `help:"Number of slots to query" default:"4" env:"DS4DSU_PROBE_SLOTS"`
	Timeout time.Duration `help:"How long to wait for port info replies" default:"1s" env:"DS4DSU_PROBE_TIMEOUT"`
	Watch   bool          `help:"Subscribe to all slots and print incoming reports" env:"DS4DSU_PROBE_WATCH"`
	Renew   time.Duration `help:"Interval between data requests while watching" default:"1s" env:"DS4DSU_PROBE_RENEW"`
}

// Run is called by Kong when the probe command is executed.
func (p *Probe) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return p.run(ctx, os.Stdout, logger)
}

func (p *Probe) run(ctx context.Context, out io.Writer, logger *slog.Logger) error {
	if p.Slots <= 0 || p.Slots > 256 {
		return fmt.Errorf("slots must be between 1 and 256, got %d", p.Slots)
	}
	raddr, err := net.ResolveUDPAddr("udp", p.Addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", p.Addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.Addr, err)
	}
	defer conn.Close()

	c := &probeClient{conn: conn, id: rand.Uint32()}
	logger.Debug("probing DSU server", "addr", p.Addr, "slots", p.Slots)

	infos, err := c.queryPorts(ctx, p.Slots, p.Timeout)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return fmt.Errorf("no reply from %s within %s", p.Addr, p.Timeout)
	}
	renderPorts(out, infos)

	if !p.Watch {
		return nil
	}
	return c.watch(ctx, out, p.Renew, isTerminal(out))
}

type probeClient struct {
	conn *net.UDPConn
	id   uint32
}

func (c *probeClient) send(t dsu.MessageType, payload []byte) error {
	_, err := c.conn.Write(dsu.NewClientBuilder(t, c.id).Bytes(payload).Finalize())
	return err
}

// read returns the next server message, or ok=false once the deadline passes.
func (c *probeClient) read(buf []byte, deadline time.Time) (dsu.MessageType, []byte, bool, error) {
	_ = c.conn.SetReadDeadline(deadline)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return 0, nil, false, nil
			}
			return 0, nil, false, err
		}
		if !dsu.VerifyChecksum(buf[:n]) {
			continue
		}
		t, payload, err := dsu.DecodeHeader(buf[:n])
		if err != nil {
			continue
		}
		return t, payload, true, nil
	}
}

func (c *probeClient) queryPorts(ctx context.Context, slots int, timeout time.Duration) ([]dsu.SlotInfo, error) {
	if err := c.send(dsu.MessageVersion, nil); err != nil {
		return nil, fmt.Errorf("send version request: %w", err)
	}
	req := dsu.PortsRequest{Slots: make([]uint8, slots)}
	for i := range req.Slots {
		req.Slots[i] = uint8(i)
	}
	payload, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := c.send(dsu.MessagePorts, payload); err != nil {
		return nil, fmt.Errorf("send ports request: %w", err)
	}

	seen := make(map[uint8]dsu.SlotInfo, slots)
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 1024)
	for len(seen) < slots && ctx.Err() == nil {
		t, payload, ok, err := c.read(buf, deadline)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if t != dsu.MessagePorts {
			continue
		}
		info, err := dsu.ParsePortInfo(payload)
		if err != nil {
			continue
		}
		seen[info.Slot] = info
	}

	infos := make([]dsu.SlotInfo, 0, len(seen))
	for _, info := range seen {
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b dsu.SlotInfo) int { return int(a.Slot) - int(b.Slot) })
	return infos, nil
}

func renderPorts(out io.Writer, infos []dsu.SlotInfo) {
	tw := tablewriter.NewWriter(out)
	tw.SetHeader([]string{"Slot", "State", "Connection", "MAC", "Battery"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)
	for _, info := range infos {
		tw.Append([]string{
			fmt.Sprintf("%d", info.Slot),
			info.State.String(),
			info.Connection.String(),
			info.MACString(),
			fmt.Sprintf("0x%02x", uint8(info.Battery)),
		})
	}
	tw.Render()
}

// watch subscribes to every slot and prints each data message until ctx is
// done. In a terminal the per-slot lines are redrawn in place.
func (c *probeClient) watch(ctx context.Context, out io.Writer, renew time.Duration, redraw bool) error {
	if renew <= 0 {
		renew = time.Second
	}
	sub, err := dsu.DataRequest{Mode: dsu.ModeAll}.MarshalBinary()
	if err != nil {
		return err
	}
	if err := c.send(dsu.MessageData, sub); err != nil {
		return fmt.Errorf("send data request: %w", err)
	}
	nextRenew := time.Now().Add(renew)

	lines := map[uint8]string{}
	drawn := 0
	buf := make([]byte, 1024)
	for ctx.Err() == nil {
		if now := time.Now(); !now.Before(nextRenew) {
			if err := c.send(dsu.MessageData, sub); err != nil {
				return fmt.Errorf("renew data request: %w", err)
			}
			nextRenew = now.Add(renew)
		}

		deadline := time.Now().Add(100 * time.Millisecond)
		t, payload, ok, err := c.read(buf, earlier(deadline, nextRenew))
		if err != nil {
			return err
		}
		if !ok || t != dsu.MessageData {
			continue
		}
		p, err := dsu.ParsePadData(payload)
		if err != nil {
			continue
		}

		line := formatPadData(p)
		if !redraw {
			_, _ = fmt.Fprintln(out, line)
			continue
		}
		lines[p.Info.Slot] = line
		if drawn > 0 {
			_, _ = fmt.Fprintf(out, "\x1b[%dA", drawn)
		}
		drawn = 0
		for _, slot := range slices.Sorted(maps.Keys(lines)) {
			_, _ = fmt.Fprintf(out, "\r\x1b[K%s\n", lines[slot])
			drawn++
		}
	}
	return nil
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func formatPadData(p dsu.PadData) string {
	var touches []string
	for _, t := range p.Touches {
		if t.Active {
			touches = append(touches, fmt.Sprintf("#%d(%d,%d)", t.ID, t.X, t.Y))
		}
	}
	touch := "-"
	if len(touches) > 0 {
		touch = strings.Join(touches, " ")
	}
	return fmt.Sprintf(
		"slot %d seq %-8d buttons %02x %02x ps %d tp %d L(%3d,%3d) R(%3d,%3d) L2 %3d R2 %3d touch %s accel(%+.2f %+.2f %+.2f) gyro(%+.1f %+.1f %+.1f)",
		p.Info.Slot, p.Sequence, p.Buttons1, p.Buttons2, boolDigit(p.PS), boolDigit(p.Touchpad),
		p.LeftX, p.LeftY, p.RightX, p.RightY, p.L2, p.R2, touch,
		p.Accel[0], p.Accel[1], p.Accel[2], p.Gyro[0], p.Gyro[1], p.Gyro[2],
	)
}

func boolDigit(v uint8) int {
	if v != 0 {
		return 1
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
