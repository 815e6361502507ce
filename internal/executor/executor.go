package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ovnexplorer/ovnexplorer/internal/config"
)

// Result 一次命令执行的结果
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CommandExecutor 在目标环境中执行命令。
// 命令以参数向量传递，不经过本地 shell；远端非零退出码通过 Result.ExitCode 返回，
// 只有通道级失败（无法连接、超时、取消）返回 error。
type CommandExecutor interface {
	Execute(ctx context.Context, argv []string) (*Result, error)
}

// TransportError 执行通道不可用
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CommandError 命令已执行但返回非零退出码
type CommandError struct {
	Argv     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("command %q exited with code %d: %s", strings.Join(e.Argv, " "), e.ExitCode, msg)
}

// Check 非零退出码转换为 CommandError
func Check(argv []string, res *Result) error {
	if res == nil || res.ExitCode == 0 {
		return nil
	}
	return &CommandError{Argv: argv, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
}

// Closer 持有连接的执行器
type Closer interface {
	Close() error
}

// FromConfig 根据配置创建执行器
func FromConfig(cfg config.ExecutorConfig) (CommandExecutor, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", "kubectl":
		return NewKubectlExecutor(cfg.Kubectl, nil), nil
	case "ssh":
		return NewSSHExecutor(cfg.SSH), nil
	case "local":
		return NewLocalExecutor(nil), nil
	default:
		return nil, fmt.Errorf("unsupported executor mode %q", cfg.Mode)
	}
}
