package rpc

import (
	"context"
	"io"
	"net"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/coffeeidx/internal/definition"
	"github.com/alucardeht/coffeeidx/internal/index"
)

// Client calls a running server.
type Client struct {
	conn *jsonrpc2.Conn
}

// Dial connects to a server listening on a unix socket.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, err
	}
	return NewClient(ctx, nc), nil
}

func NewClient(ctx context.Context, rwc io.ReadWriteCloser) *Client {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	return &Client{conn: jsonrpc2.NewConn(ctx, stream, clientHandler{})}
}

// servers never call back into clients
type clientHandler struct{}

func (clientHandler) Handle(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) {}

func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	return c.conn.Call(ctx, method, params, result)
}

func (c *Client) Notify(ctx context.Context, method string, params any) error {
	return c.conn.Notify(ctx, method, params)
}

// Definitions calls one of the file-scoped query methods.
func (c *Client) Definitions(ctx context.Context, method, file string) ([]definition.Definition, error) {
	var defs []definition.Definition
	err := c.Call(ctx, method, FileParams{File: file}, &defs)
	return defs, err
}

func (c *Client) Search(ctx context.Context, prefix string) ([]definition.Definition, error) {
	var defs []definition.Definition
	err := c.Call(ctx, MethodSearch, SearchParams{Prefix: prefix}, &defs)
	return defs, err
}

func (c *Client) Update(ctx context.Context, file string, source *string) error {
	var ok bool
	return c.Call(ctx, MethodUpdate, UpdateParams{File: file, Source: source}, &ok)
}

func (c *Client) Remove(ctx context.Context, file string) error {
	var ok bool
	return c.Call(ctx, MethodRemove, FileParams{File: file}, &ok)
}

func (c *Client) Stats(ctx context.Context) (*index.Stats, error) {
	var stats index.Stats
	if err := c.Call(ctx, MethodStats, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
