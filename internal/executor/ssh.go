package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/ovnexplorer/ovnexplorer/internal/config"
	"github.com/ovnexplorer/ovnexplorer/internal/util"
	"github.com/ovnexplorer/ovnexplorer/pkg/ssh"
)

// SSHExecutor 通过 SSH 在 OVN 主机上执行命令，连接懒建立并复用
type SSHExecutor struct {
	info   *ssh.ConnectionInfo
	client *ssh.Client

	mu        sync.Mutex
	connected bool
}

// NewSSHExecutor 创建 SSH 执行器
func NewSSHExecutor(cfg config.SSHConfig) *SSHExecutor {
	return &SSHExecutor{
		info: &ssh.ConnectionInfo{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			KeyFile:  cfg.KeyFile,
		},
		client: ssh.NewClient(&ssh.Config{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: cfg.KeepAliveInterval,
		}),
	}
}

func (e *SSHExecutor) ensureConnected(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.connected {
		return nil
	}
	if err := e.client.Connect(ctx, e.info); err != nil {
		return err
	}
	e.connected = true
	return nil
}

// Execute 参数经 shell 引用后在远端执行
func (e *SSHExecutor) Execute(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	if err := e.ensureConnected(ctx); err != nil {
		return nil, &TransportError{Op: "ssh connect", Err: err}
	}
	out, err := e.client.Run(ctx, ssh.QuoteArgs(argv))
	if err != nil {
		return nil, &TransportError{Op: "ssh exec", Err: err}
	}
	return &Result{
		Stdout:   util.NormalizeNewlines(util.DecodeOutput([]byte(out.Stdout))),
		Stderr:   util.NormalizeNewlines(util.DecodeOutput([]byte(out.Stderr))),
		ExitCode: out.ExitCode,
		Duration: out.Duration,
	}, nil
}

// Close 关闭连接
func (e *SSHExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = false
	return e.client.Close()
}
