package service

import (
	"fmt"
	"strings"

	"github.com/ovnexplorer/ovnexplorer/internal/config"
	"github.com/ovnexplorer/ovnexplorer/internal/model"
)

// CommandSet 每个类型对应的采集命令（参数向量）
type CommandSet map[model.Kind][]string

// BuildCommands 按配置生成命令：command_prefix [--format=json] list <Table>，
// ovn.commands 中的同名配置整体覆盖
func BuildCommands(cfg config.OVNConfig) (CommandSet, error) {
	prefix := splitArgs(cfg.CommandPrefix)
	if len(prefix) == 0 {
		prefix = []string{"ovn-nbctl"}
	}
	out := make(CommandSet, len(model.AllKinds()))
	for _, kind := range model.AllKinds() {
		argv := append([]string{}, prefix...)
		if cfg.JSONFormat {
			argv = append(argv, "--format=json")
		}
		out[kind] = append(argv, "list", kind.Table())
	}
	for name, line := range cfg.Commands {
		kind, err := model.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("ovn.commands: %w", err)
		}
		argv := splitArgs(line)
		if len(argv) == 0 {
			return nil, fmt.Errorf("ovn.commands.%s is empty", name)
		}
		out[kind] = argv
	}
	return out, nil
}

// splitArgs 按空白切分命令行，支持单双引号包裹含空格的参数
func splitArgs(line string) []string {
	var args []string
	var cur strings.Builder
	var quote rune
	inArg := false
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inArg = true
		case r == ' ' || r == '\t' || r == '\n':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args
}

// ParseKinds 解析配置中的类型列表，为空表示全部
func ParseKinds(names []string) ([]model.Kind, error) {
	if len(names) == 0 {
		return model.AllKinds(), nil
	}
	seen := make(map[model.Kind]bool, len(names))
	out := make([]model.Kind, 0, len(names))
	for _, n := range names {
		k, err := model.ParseKind(n)
		if err != nil {
			return nil, fmt.Errorf("ovn.kinds: %w", err)
		}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out, nil
}

// OptionsFromConfig 由配置生成服务参数，执行器与缓存由调用方注入
func OptionsFromConfig(cfg config.OVNConfig) (Options, error) {
	cmds, err := BuildCommands(cfg)
	if err != nil {
		return Options{}, err
	}
	kinds, err := ParseKinds(cfg.Kinds)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Commands:           cmds,
		Kinds:              kinds,
		FetchTimeout:       cfg.FetchTimeout,
		Concurrency:        cfg.Concurrency,
		LoadCacheOnStartup: cfg.LoadCacheOnStartup,
	}, nil
}
