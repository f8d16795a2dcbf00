package service

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/bennyz/qarax/internal/repository"
	"github.com/bennyz/qarax/pkg/log"
	"github.com/bennyz/qarax/pkg/nodeagent"
	"github.com/bennyz/qarax/pkg/sid"
)

type Service struct {
	logger *log.Logger
	sid    *sid.Sid
	tm     repository.Transaction
}

func NewService(tm repository.Transaction, logger *log.Logger, sid *sid.Sid) *Service {
	return &Service{
		logger: logger,
		sid:    sid,
		tm:     tm,
	}
}

// AgentClient is the per-host virtualization agent surface the control
// plane depends on. *nodeagent.Client satisfies it; tests substitute mocks.
type AgentClient interface {
	CreateVM(ctx context.Context, config nodeagent.VMConfig) error
	StartVM(ctx context.Context, vmID string) error
	PauseVM(ctx context.Context, vmID string) error
	ResumeVM(ctx context.Context, vmID string) error
	ShutdownVM(ctx context.Context, vmID string) error
	DeleteVM(ctx context.Context, vmID string) error
	GetVMInfo(ctx context.Context, vmID string) (*nodeagent.VMInfo, error)
	VMMetrics(ctx context.Context, vmID string) (map[string]interface{}, error)
	ConsoleLog(ctx context.Context, vmID string) (string, error)
	DialConsole(ctx context.Context, vmID string) (*websocket.Conn, error)
	GetNodeInfo(ctx context.Context) (*nodeagent.NodeInfo, error)
	Ping(ctx context.Context) error
}

// AgentClientFactory builds a client for a host endpoint.
type AgentClientFactory func(address string, port int) AgentClient

// NewAgentClientFactory returns the production factory backed by the HTTP
// agent client.
func NewAgentClientFactory() AgentClientFactory {
	return func(address string, port int) AgentClient {
		return nodeagent.NewClient(address, port)
	}
}
