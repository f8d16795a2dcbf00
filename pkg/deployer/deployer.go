// Package deployer provisions hosts over SSH by switching them to a
// bootc-managed OS image that carries the node agent, then waits for the
// agent to come up.
package deployer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

const (
	sshConnectTimeout  = 15 * time.Second
	nodeWaitTimeout    = 5 * time.Minute
	nodePollInterval   = 5 * time.Second
	rebootDetectWindow = 90 * time.Second
	portProbeTimeout   = 3 * time.Second
)

var (
	ErrMissingUser = errors.New("ssh user is required")
	ErrMissingAuth = errors.New("no ssh authentication method provided")
)

// Target identifies the machine being provisioned and the agent port to
// wait on afterwards.
type Target struct {
	Address   string
	AgentPort int
}

// Options control the bootc switch performed on the target.
type Options struct {
	Image         string
	SSHPort       int
	SSHUser       string
	SSHPassword   string
	SSHPrivateKey string // path to a private key file
	InstallBootc  bool
	Reboot        bool
}

// Deployer runs bootc-based host provisioning. Implementations must be safe
// for concurrent use.
type Deployer interface {
	Deploy(ctx context.Context, target Target, opts Options) error
}

type sshDeployer struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) Deployer {
	return &sshDeployer{logger: logger}
}

func (d *sshDeployer) Deploy(ctx context.Context, target Target, opts Options) error {
	script := buildBootcScript(opts)
	command := "sh -lc " + shellSingleQuote(script)

	if err := d.runCommand(ctx, target, opts, command, opts.Reboot); err != nil {
		return err
	}

	if opts.Reboot {
		d.waitForRebootTransition(ctx, target)
	}

	return d.waitForAgent(ctx, target)
}

func buildBootcScript(opts Options) string {
	var b strings.Builder
	b.WriteString("set -euo pipefail\n")
	b.WriteString("run_privileged() {\n")
	b.WriteString("  if [ \"$(id -u)\" -eq 0 ]; then\n")
	b.WriteString("    \"$@\"\n")
	b.WriteString("  else\n")
	b.WriteString("    sudo -n \"$@\"\n")
	b.WriteString("  fi\n")
	b.WriteString("}\n")

	if opts.InstallBootc {
		b.WriteString("if ! command -v bootc >/dev/null 2>&1; then\n")
		b.WriteString("  if command -v dnf >/dev/null 2>&1; then\n")
		b.WriteString("    run_privileged dnf install -y bootc\n")
		b.WriteString("  elif command -v apt-get >/dev/null 2>&1; then\n")
		b.WriteString("    run_privileged apt-get update\n")
		b.WriteString("    run_privileged apt-get install -y bootc\n")
		b.WriteString("  else\n")
		b.WriteString("    echo \"bootc is not installed and no supported package manager was found\" >&2\n")
		b.WriteString("    exit 1\n")
		b.WriteString("  fi\n")
		b.WriteString("fi\n")
	}

	fmt.Fprintf(&b, "run_privileged bootc switch %s\n", shellSingleQuote(strings.TrimSpace(opts.Image)))

	if opts.Reboot {
		b.WriteString("run_privileged systemctl reboot\n")
	}

	return b.String()
}

func shellSingleQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func (d *sshDeployer) runCommand(ctx context.Context, target Target, opts Options, command string, allowDisconnect bool) error {
	user := strings.TrimSpace(opts.SSHUser)
	if user == "" {
		return ErrMissingUser
	}

	authMethods, err := buildAuthMethods(opts)
	if err != nil {
		return err
	}

	config := &ssh.ClientConfig{
		User: user,
		Auth: authMethods,
		// Matches StrictHostKeyChecking=accept-new: provisioning targets
		// are freshly imaged machines with no prior known_hosts entry.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         sshConnectTimeout,
	}

	addr := net.JoinHostPort(target.Address, fmt.Sprintf("%d", opts.SSHPort))
	client, err := dialSSH(ctx, addr, config)
	if err != nil {
		return fmt.Errorf("ssh connect to %s: %w", addr, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("open ssh session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	err = session.Run(command)
	if err == nil {
		return nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("remote command failed (status %d)\nstdout: %s\nstderr: %s",
			exitErr.ExitStatus(),
			strings.TrimSpace(stdout.String()),
			strings.TrimSpace(stderr.String()))
	}

	// A reboot at the end of the script tears the connection down before
	// the exit status arrives.
	var missingErr *ssh.ExitMissingError
	if errors.As(err, &missingErr) && allowDisconnect {
		return nil
	}
	if allowDisconnect && isConnectionDropped(err) {
		return nil
	}

	return fmt.Errorf("run remote command: %w", err)
}

func buildAuthMethods(opts Options) ([]ssh.AuthMethod, error) {
	password := strings.TrimSpace(opts.SSHPassword)
	if password != "" {
		return []ssh.AuthMethod{ssh.Password(password)}, nil
	}

	if keyPath := strings.TrimSpace(opts.SSHPrivateKey); keyPath != "" {
		expanded, err := expandKeyPath(keyPath)
		if err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(expanded)
		if err != nil {
			return nil, fmt.Errorf("read ssh private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("parse ssh private key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	return nil, ErrMissingAuth
}

func expandKeyPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("invalid ssh key path %q: %w", path, err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

func dialSSH(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

func isConnectionDropped(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		strings.Contains(err.Error(), "connection reset") ||
		strings.Contains(err.Error(), "EOF")
}

// waitForRebootTransition blocks until the agent port goes dark, which
// signals the reboot actually started. A host that never goes dark within
// the window is probably already back up; the readiness wait decides.
func (d *sshDeployer) waitForRebootTransition(ctx context.Context, target Target) {
	deadline := time.Now().Add(rebootDetectWindow)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		if !isPortOpen(target.Address, target.AgentPort) {
			d.logger.Info("detected host reboot transition",
				zap.String("address", target.Address),
				zap.Int("port", target.AgentPort))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
	d.logger.Warn("host did not become unreachable after reboot, continuing with readiness checks",
		zap.String("address", target.Address),
		zap.Int("port", target.AgentPort))
}

func (d *sshDeployer) waitForAgent(ctx context.Context, target Target) error {
	deadline := time.Now().Add(nodeWaitTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if isPortOpen(target.Address, target.AgentPort) {
			d.logger.Info("node agent became reachable",
				zap.String("address", target.Address),
				zap.Int("port", target.AgentPort))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(nodePollInterval):
		}
	}
	return fmt.Errorf("node agent did not become reachable at %s:%d before timeout", target.Address, target.AgentPort)
}

func isPortOpen(address string, port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(address, fmt.Sprintf("%d", port)), portProbeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
