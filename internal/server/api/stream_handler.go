package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
)

// FeedStreamHandler returns the stream handler that reads frames in the
// feed's format and broadcasts one report per frame.
func FeedStreamHandler() StreamHandlerFunc {
	return func(conn net.Conn, feed *Feed, logger *slog.Logger) error {
		defer conn.Close()

		format := GetFormat(feed.Format())
		if format == nil {
			return fmt.Errorf("%w: %s", ErrUnknownFormat, feed.Format())
		}

		buf := make([]byte, format.FrameSize())
		for {
			if _, err := io.ReadFull(conn, buf); err != nil {
				if errors.Is(err, io.EOF) {
					logger.Info("feed disconnected", "slot", feed.Slot())
					return nil
				}
				return fmt.Errorf("read %s frame: %w", feed.Format(), err)
			}
			r, err := format.Decode(buf)
			if err != nil {
				return fmt.Errorf("decode %s frame: %w", feed.Format(), err)
			}
			feed.Report(&r)
		}
	}
}
