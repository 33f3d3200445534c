//go:build linux

package unitctl

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Client holds one system bus connection.
type Client struct {
	conn *dbus.Conn
}

func Dial(ctx context.Context) (*Client, error) {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Client) Status(ctx context.Context, name string) (Status, error) {
	unit := unitName(name)
	props, err := c.conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		if isNoSuchUnit(err) {
			return notFound(unit), nil
		}
		return Status{}, fmt.Errorf("status %s: %w", unit, err)
	}
	st := fromProps(unit, props, time.Now())
	if st.Found() {
		if v, err := c.conn.GetServicePropertyContext(ctx, unit, "MemoryCurrent"); err == nil {
			if mem, ok := v.Value.Value().(uint64); ok && mem != ^uint64(0) {
				st.Memory = mem
			}
		}
		if v, err := c.conn.GetServicePropertyContext(ctx, unit, "MainPID"); err == nil {
			if pid, ok := v.Value.Value().(uint32); ok {
				st.MainPID = pid
			}
		}
	}
	return st, nil
}

// Restart queues a restart job and waits for its result.
func (c *Client) Restart(ctx context.Context, name string) error {
	unit := unitName(name)
	done := make(chan string, 1)
	if _, err := c.conn.RestartUnitContext(ctx, unit, "replace", done); err != nil {
		return fmt.Errorf("restart %s: %w", unit, err)
	}
	select {
	case res := <-done:
		if res != "done" {
			return fmt.Errorf("restart %s: job %s", unit, res)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
