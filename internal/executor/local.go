package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ovnexplorer/ovnexplorer/internal/util"
)

// Runner 运行本地进程，测试中替换为假实现
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExecRunner 基于 os/exec 的进程运行器
type ExecRunner struct{}

// Run 运行进程。进程已启动并退出（无论退出码）时 err 为 nil。
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Stdout:   util.NormalizeNewlines(util.DecodeOutput(stdout.Bytes())),
		Stderr:   util.NormalizeNewlines(util.DecodeOutput(stderr.Bytes())),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	res.ExitCode = 0
	return res, nil
}

// LocalExecutor 在本机直接执行（与 ovn-nbctl 部署在同一主机时使用）
type LocalExecutor struct {
	runner Runner
}

// NewLocalExecutor 创建本地执行器，runner 为空时使用 os/exec
func NewLocalExecutor(runner Runner) *LocalExecutor {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &LocalExecutor{runner: runner}
}

// Execute 执行命令
func (e *LocalExecutor) Execute(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	res, err := e.runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return res, &TransportError{Op: "local exec", Err: err}
	}
	return res, nil
}
