package app

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ovnexplorer/ovnexplorer/internal/cache"
	"github.com/ovnexplorer/ovnexplorer/internal/config"
	"github.com/ovnexplorer/ovnexplorer/internal/database"
	"github.com/ovnexplorer/ovnexplorer/internal/executor"
	"github.com/ovnexplorer/ovnexplorer/internal/service"
	"github.com/ovnexplorer/ovnexplorer/pkg/logger"
)

// App 组装好的运行时依赖
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Cache    *cache.Cache
	Index    *cache.GormIndex
	Recorder *service.GormRefreshRecorder
	Service  *service.AcquisitionService
}

// Options 组装参数
type Options struct {
	// Executor 为空时按配置创建
	Executor executor.CommandExecutor
	// Offline 不连接集群，只读缓存
	Offline bool
	// SkipDatabase 不打开 SQLite
	SkipDatabase bool
}

// Build 按配置组装缓存、执行器与采集服务
func Build(cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	if !opts.SkipDatabase && strings.TrimSpace(cfg.Database.SQLite.Path) != "" {
		if err := database.InitSQLite(cfg.Database.SQLite); err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		a.DB = database.GetDB()
		a.Index = cache.NewGormIndex(a.DB)
		a.Recorder = service.NewGormRefreshRecorder(a.DB)
	}

	cacheCfg := cache.Config{Dir: cfg.OVN.CacheDir}
	if a.Index != nil {
		cacheCfg.Index = a.Index
	}
	if !opts.Offline {
		mirror, err := cache.NewMinioMirror(cfg.Storage.Minio)
		if err != nil {
			// 镜像不可用不影响本地缓存
			logger.Warnf("MinIO mirror disabled: %v", err)
		} else if mirror != nil {
			cacheCfg.Mirror = mirror
		}
	}
	c, err := cache.New(cacheCfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Cache = c

	exec := opts.Executor
	if exec == nil {
		if opts.Offline {
			exec = offlineExecutor{}
		} else {
			exec, err = executor.FromConfig(cfg.Executor)
			if err != nil {
				a.Close()
				return nil, err
			}
		}
	}

	svcOpts, err := service.OptionsFromConfig(cfg.OVN)
	if err != nil {
		a.Close()
		return nil, err
	}
	svcOpts.Executor = exec
	svcOpts.Cache = c
	if a.Recorder != nil {
		svcOpts.Recorder = a.Recorder
	}
	if opts.Offline {
		svcOpts.LoadCacheOnStartup = true
	}
	a.Service, err = service.NewAcquisitionService(svcOpts)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close 释放数据库连接
func (a *App) Close() {
	if a.DB != nil {
		if err := database.Close(); err != nil {
			logger.Warnf("Failed to close database: %v", err)
		}
		a.DB = nil
	}
}

// ErrOffline 离线模式下拒绝执行命令
var ErrOffline = errors.New("offline mode: command execution disabled")
