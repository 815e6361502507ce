package app

import (
	"context"

	"github.com/ovnexplorer/ovnexplorer/internal/executor"
)

// offlineExecutor 离线模式下的执行器，刷新直接回退到缓存
type offlineExecutor struct{}

func (offlineExecutor) Execute(context.Context, []string) (*executor.Result, error) {
	return nil, &executor.TransportError{Op: "offline", Err: ErrOffline}
}
