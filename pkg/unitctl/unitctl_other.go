//go:build !linux

package unitctl

import "context"

type Client struct{}

func Dial(context.Context) (*Client, error) { return nil, ErrUnsupported }

func (c *Client) Close() {}

func (c *Client) Status(context.Context, string) (Status, error) { return Status{}, ErrUnsupported }

func (c *Client) Restart(context.Context, string) error { return ErrUnsupported }
