// Package apiclient is a Go client for the ds4dsu feed API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Alia5/ds4dsu/apitypes"
	"github.com/Alia5/ds4dsu/device"
	"github.com/Alia5/ds4dsu/dsu"
)

// Client provides a high-level interface to the feed API, handling request
// formatting, response parsing, and error handling.
type Client struct{ transport *Transport }

// New constructs a high-level API client using the internal low-level Transport.
// The addr parameter specifies the TCP address (host:port) of the feed API.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client that authenticates with the given password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport implementation.
// This is primarily useful for testing.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the version and identity of the server.
func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

// PingCtx is the context-aware version of Ping.
func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "ping", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PingResponse](raw)
}

// SlotsList describes every DSU slot.
func (c *Client) SlotsList() (*apitypes.SlotsListResponse, error) {
	return c.SlotsListCtx(context.Background())
}

func (c *Client) SlotsListCtx(ctx context.Context) (*apitypes.SlotsListResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "slots/list", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SlotsListResponse](raw)
}

// Attach registers a controller into an empty slot. An empty format selects
// the server default. A stream must be opened with OpenStream before the
// server's connect timeout runs out.
func (c *Client) Attach(slot uint8, id device.Identity, format string) (*apitypes.Slot, error) {
	return c.AttachCtx(context.Background(), slot, id, format)
}

func (c *Client) AttachCtx(ctx context.Context, slot uint8, id device.Identity, format string) (*apitypes.Slot, error) {
	req := apitypes.AttachRequest{
		MAC:        id.Address,
		Connection: id.Connection.String(),
		Format:     format,
	}
	raw, err := c.transport.DoCtx(ctx, "slots/{slot}/attach", req, slotParams(slot))
	if err != nil {
		return nil, err
	}
	return parse[apitypes.Slot](raw)
}

// Detach removes the API-attached controller of a slot.
func (c *Client) Detach(slot uint8) (*apitypes.DetachResponse, error) {
	return c.DetachCtx(context.Background(), slot)
}

func (c *Client) DetachCtx(ctx context.Context, slot uint8) (*apitypes.DetachResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "slots/{slot}/detach", nil, slotParams(slot))
	if err != nil {
		return nil, err
	}
	return parse[apitypes.DetachResponse](raw)
}

// ClientsList returns the DSU clients currently subscribed to the server.
func (c *Client) ClientsList() (*apitypes.ClientsListResponse, error) {
	return c.ClientsListCtx(context.Background())
}

func (c *Client) ClientsListCtx(ctx context.Context) (*apitypes.ClientsListResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "clients/list", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.ClientsListResponse](raw)
}

// Stats returns the DSU server counters.
func (c *Client) Stats() (*apitypes.StatsResponse, error) {
	return c.StatsCtx(context.Background())
}

func (c *Client) StatsCtx(ctx context.Context) (*apitypes.StatsResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "stats", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.StatsResponse](raw)
}

// FormatsList returns the feed formats the server understands.
func (c *Client) FormatsList() (*apitypes.FormatsListResponse, error) {
	raw, err := c.transport.DoCtx(context.Background(), "formats/list", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.FormatsListResponse](raw)
}

func slotParams(slot uint8) map[string]string {
	return map[string]string{"slot": fmt.Sprintf("%d", slot)}
}

// Unknown fields are rejected so a client talking to the wrong server fails loudly.
func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}

// Identity is a convenience for building the identity of an attach request
// from a MAC string.
func Identity(mac string, conn device.Connection) (device.Identity, error) {
	hw, err := dsu.ParseMAC(mac)
	if err != nil {
		return device.Identity{}, err
	}
	return device.Identity{Address: dsu.FormatMAC(hw), Connection: conn}, nil
}
