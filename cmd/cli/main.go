package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ovnexplorer/ovnexplorer/internal/app"
	"github.com/ovnexplorer/ovnexplorer/internal/config"
	"github.com/ovnexplorer/ovnexplorer/internal/model"
	"github.com/ovnexplorer/ovnexplorer/internal/service"
	"github.com/ovnexplorer/ovnexplorer/pkg/logger"
)

type kindOutput struct {
	Kind           string                   `json:"kind"`
	Status         string                   `json:"status"`
	State          string                   `json:"state"`
	Count          int                      `json:"count"`
	Stage          string                   `json:"stage,omitempty"`
	ParseExhausted bool                     `json:"parse_exhausted,omitempty"`
	Error          string                   `json:"error,omitempty"`
	Resources      []map[string]interface{} `json:"resources,omitempty"`
}

func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径，为空时按默认路径查找")
		kindName   = flag.String("kind", "", "只刷新指定类型，为空时刷新全部")
		offline    = flag.Bool("offline", false, "不执行命令，只输出缓存数据")
		summary    = flag.Bool("summary", false, "只输出统计，不输出资源明细")
		history    = flag.Bool("history", false, "列出指定类型的缓存历史（需要 -kind）")
		verbose    = flag.Bool("v", false, "输出调试日志")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	// 标准输出留给结果
	level := "warn"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Level: level, Format: "text", Output: "stderr"}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	var kind model.Kind
	if *kindName != "" {
		if kind, err = model.ParseKind(*kindName); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	a, err := app.Build(cfg, app.Options{Offline: *offline, SkipDatabase: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if *history {
		if kind == "" {
			fmt.Fprintln(os.Stderr, "-history requires -kind")
			os.Exit(2)
		}
		items, err := a.Cache.History(kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read history: %v\n", err)
			os.Exit(1)
		}
		printJSON(items)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Service.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Service.Stop()

	var results []*service.KindResult
	if kind != "" {
		res, err := a.Service.Refresh(ctx, kind)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		results = append(results, res)
	} else {
		out := a.Service.RefreshAll(ctx)
		for _, k := range model.AllKinds() {
			if res, ok := out.Results[k]; ok {
				results = append(results, res)
			}
		}
	}

	failed := 0
	outputs := make([]kindOutput, 0, len(results))
	for _, res := range results {
		o := kindOutput{
			Kind:           string(res.Kind),
			Status:         string(res.Status),
			State:          string(res.State),
			Count:          len(res.Resources),
			Stage:          string(res.Stage),
			ParseExhausted: res.ParseExhausted,
		}
		if res.FetchErr != nil {
			o.Error = res.FetchErr.Error()
		}
		if res.Status == service.StatusEmpty && res.FetchErr != nil {
			failed++
		}
		if !*summary {
			for _, r := range res.Resources {
				m := r.ToMap()
				delete(m, "raw_source")
				o.Resources = append(o.Resources, m)
			}
		}
		outputs = append(outputs, o)
	}
	printJSON(outputs)

	logger.WithFields(logrus.Fields{"kinds": len(results), "failed": failed}).Info("Done")
	if failed == len(results) && failed > 0 {
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		os.Exit(1)
	}
}
