package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/Paranoid-AF/vctrace"
)

const (
	defaultTimeout = 5 * time.Minute
	maxResponse    = 64 << 20
)

// Client sends requests to a running vctraced.
type Client struct {
	sockPath string
	timeout  time.Duration
}

// NewClient creates a client for the daemon listening on sockPath.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath, timeout: defaultTimeout}
}

// Do sends req on a fresh connection and waits for its response line.
func (c *Client) Do(ctx context.Context, req *vctrace.Request) (*vctrace.Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.sockPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	conn.SetDeadline(deadline)

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponse)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("daemon closed the connection without a response")
	}

	var resp vctrace.Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
