// Package nodeagent implements the HTTP client for the per-host
// virtualization agent. The agent exposes a small JSON API that fronts the
// hypervisor process on each compute host; the control plane only ever
// talks to it through this client.
package nodeagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ErrUnavailable wraps connection-level failures (agent unreachable,
// timeout). Callers use errors.Is to distinguish these from API errors.
var ErrUnavailable = errors.New("node agent unavailable")

// ErrNotFound is returned when the agent reports no such VM.
var ErrNotFound = errors.New("not found on node agent")

// APIError is a non-2xx response from the agent.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("node agent error (status %d): %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

type Option func(c *Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func NewClient(address string, port int, opts ...Option) *Client {
	u := &url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", address, port)}
	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VMConfig is the define-time configuration sent to the agent before boot.
type VMConfig struct {
	VMID     string          `json:"vm_id"`
	CPUs     CPUsConfig      `json:"cpus"`
	Memory   MemoryConfig    `json:"memory"`
	Payload  PayloadConfig   `json:"payload"`
	Networks []NetworkConfig `json:"networks,omitempty"`
}

type CPUsConfig struct {
	BootVcpus int `json:"boot_vcpus"`
	MaxVcpus  int `json:"max_vcpus"`
}

type MemoryConfig struct {
	Size        int64  `json:"size"`
	HotplugSize *int64 `json:"hotplug_size,omitempty"`
	Mergeable   bool   `json:"mergeable,omitempty"`
	Shared      bool   `json:"shared,omitempty"`
	Hugepages   bool   `json:"hugepages,omitempty"`
	Prefault    bool   `json:"prefault,omitempty"`
	Thp         bool   `json:"thp,omitempty"`
}

type PayloadConfig struct {
	Kernel    string  `json:"kernel"`
	Cmdline   string  `json:"cmdline,omitempty"`
	Initramfs *string `json:"initramfs,omitempty"`
}

type NetworkConfig struct {
	ID  string  `json:"id"`
	Tap *string `json:"tap,omitempty"`
	Mac *string `json:"mac,omitempty"`
	IP  *string `json:"ip,omitempty"`
	MTU *int    `json:"mtu,omitempty"`
}

// VMInfo is the agent's view of a VM.
type VMInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// NodeInfo reports agent/host version details.
type NodeInfo struct {
	CloudHypervisorVersion string `json:"cloud_hypervisor_version"`
	KernelVersion          string `json:"kernel_version"`
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	u := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return connErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(raw))
		var parsed struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &parsed) == nil && parsed.Message != "" {
			msg = parsed.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func connErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// CreateVM defines a VM on the agent. Idempotent: re-defining an existing
// VM with the same id is accepted by the agent.
func (c *Client) CreateVM(ctx context.Context, config VMConfig) error {
	return c.do(ctx, http.MethodPost, "/vms", config, nil)
}

func (c *Client) StartVM(ctx context.Context, vmID string) error {
	return c.do(ctx, http.MethodPost, "/vms/"+vmID+"/start", nil, nil)
}

func (c *Client) PauseVM(ctx context.Context, vmID string) error {
	return c.do(ctx, http.MethodPost, "/vms/"+vmID+"/pause", nil, nil)
}

func (c *Client) ResumeVM(ctx context.Context, vmID string) error {
	return c.do(ctx, http.MethodPost, "/vms/"+vmID+"/resume", nil, nil)
}

func (c *Client) ShutdownVM(ctx context.Context, vmID string) error {
	return c.do(ctx, http.MethodPost, "/vms/"+vmID+"/shutdown", nil, nil)
}

func (c *Client) DeleteVM(ctx context.Context, vmID string) error {
	return c.do(ctx, http.MethodDelete, "/vms/"+vmID, nil, nil)
}

func (c *Client) GetVMInfo(ctx context.Context, vmID string) (*VMInfo, error) {
	var info VMInfo
	if err := c.do(ctx, http.MethodGet, "/vms/"+vmID, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// VMMetrics returns agent-reported runtime metrics for a VM, opaque to the
// control plane.
func (c *Client) VMMetrics(ctx context.Context, vmID string) (map[string]interface{}, error) {
	var metrics map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/vms/"+vmID+"/metrics", nil, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

// ConsoleLog returns the tail of a VM's serial console log.
func (c *Client) ConsoleLog(ctx context.Context, vmID string) (string, error) {
	u := c.baseURL.JoinPath("/vms/" + vmID + "/console-log")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", connErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DialConsole opens a websocket to the VM's interactive console.
func (c *Client) DialConsole(ctx context.Context, vmID string) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: c.baseURL.Host, Path: "/vms/" + vmID + "/console"}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return conn, nil
}

// GetNodeInfo returns agent and host kernel versions.
func (c *Client) GetNodeInfo(ctx context.Context) (*NodeInfo, error) {
	var info NodeInfo
	if err := c.do(ctx, http.MethodGet, "/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Ping checks agent liveness.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}
