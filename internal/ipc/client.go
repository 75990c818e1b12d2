package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Roster lists workers with their presence.
func (c *Client) Roster(onsiteOnly bool) (*RosterResponse, error) {
	var resp RosterResponse
	if err := c.call("Roster", RosterRequest{OnsiteOnly: onsiteOnly}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Hours fetches the weekly grid.
func (c *Client) Hours(workerID string) (*HoursResponse, error) {
	var resp HoursResponse
	if err := c.call("Hours", HoursRequest{WorkerID: workerID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scan injects a decoded badge code.
func (c *Client) Scan(code string) (*ScanResponse, error) {
	var resp ScanResponse
	if err := c.call("Scan", ScanRequest{Code: code}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Select injects a row selection.
func (c *Client) Select(workerID string, confirm bool) (*SelectResponse, error) {
	var resp SelectResponse
	if err := c.call("Select", SelectRequest{WorkerID: workerID, Confirm: confirm}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reload refreshes the roster and history.
func (c *Client) Reload() (*ReloadResponse, error) {
	var resp ReloadResponse
	if err := c.call("Reload", ReloadRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sync resubmits pending records.
func (c *Client) Sync() (*SyncResponse, error) {
	var resp SyncResponse
	if err := c.call("Sync", SyncRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail reads the daemon log.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.call("LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.call("Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
