package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ovnexplorer/ovnexplorer/internal/config"
	"github.com/ovnexplorer/ovnexplorer/pkg/logger"
)

// kubectl 自身失败（而非容器内命令失败）时的典型错误文案
var kubectlTransportMarkers = []string{
	"unable to connect to the server",
	"error dialing backend",
	"connection refused",
	"i/o timeout",
	"tls handshake timeout",
	"container not found",
	"error from server (notfound)",
	"unable to upgrade connection",
	"you must be logged in to the server",
}

// KubectlExecutor 通过 kubectl exec 在 nbdb 容器中执行命令
type KubectlExecutor struct {
	cfg    config.KubectlConfig
	runner Runner

	mu  sync.Mutex
	pod string
}

// NewKubectlExecutor 创建执行器，runner 为空时使用 os/exec
func NewKubectlExecutor(cfg config.KubectlConfig, runner Runner) *KubectlExecutor {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Binary == "" {
		cfg.Binary = "kubectl"
	}
	return &KubectlExecutor{cfg: cfg, runner: runner, pod: strings.TrimSpace(cfg.Pod)}
}

func (e *KubectlExecutor) baseArgs() []string {
	var args []string
	if e.cfg.Kubeconfig != "" {
		args = append(args, "--kubeconfig", e.cfg.Kubeconfig)
	}
	if e.cfg.Context != "" {
		args = append(args, "--context", e.cfg.Context)
	}
	if e.cfg.Namespace != "" {
		args = append(args, "-n", e.cfg.Namespace)
	}
	return args
}

// Execute 在已解析的 Pod 中执行命令，Pod 失效时清除缓存以便下次重新查找
func (e *KubectlExecutor) Execute(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	pod, err := e.Pod(ctx)
	if err != nil {
		return nil, err
	}

	args := append(e.baseArgs(), "exec", pod)
	if e.cfg.Container != "" {
		args = append(args, "-c", e.cfg.Container)
	}
	args = append(args, "--")
	args = append(args, argv...)

	res, err := e.runner.Run(ctx, e.cfg.Binary, args...)
	if err != nil {
		return res, &TransportError{Op: "kubectl exec", Err: err}
	}
	if res.ExitCode != 0 && isKubectlTransportFailure(res.Stderr) {
		e.resetPod(pod)
		return res, &TransportError{Op: "kubectl exec", Err: fmt.Errorf("%s", strings.TrimSpace(res.Stderr))}
	}
	return res, nil
}

func isKubectlTransportFailure(stderr string) bool {
	s := strings.ToLower(stderr)
	if strings.Contains(s, "command terminated with exit code") {
		return false
	}
	for _, m := range kubectlTransportMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func (e *KubectlExecutor) resetPod(pod string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pod == pod && strings.TrimSpace(e.cfg.Pod) == "" {
		e.pod = ""
	}
}

type podList struct {
	Items []struct {
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
		Spec struct {
			NodeName string `json:"nodeName"`
		} `json:"spec"`
		Status struct {
			Phase string `json:"phase"`
		} `json:"status"`
	} `json:"items"`
}

// Pod 按命名空间与标签选择 Pod，优先选择配置节点上的运行中 Pod，否则取第一个
func (e *KubectlExecutor) Pod(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pod != "" {
		return e.pod, nil
	}

	args := append(e.baseArgs(), "get", "pods", "-o", "json")
	if e.cfg.LabelSelector != "" {
		args = append(args, "-l", e.cfg.LabelSelector)
	}
	res, err := e.runner.Run(ctx, e.cfg.Binary, args...)
	if err != nil {
		return "", &TransportError{Op: "kubectl get pods", Err: err}
	}
	if res.ExitCode != 0 {
		return "", &TransportError{Op: "kubectl get pods", Err: fmt.Errorf("exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))}
	}

	var list podList
	if err := json.Unmarshal([]byte(res.Stdout), &list); err != nil {
		return "", &TransportError{Op: "kubectl get pods", Err: fmt.Errorf("decode pod list: %w", err)}
	}

	var first, onNode string
	for _, item := range list.Items {
		if item.Status.Phase != "" && item.Status.Phase != "Running" {
			continue
		}
		if first == "" {
			first = item.Metadata.Name
		}
		if e.cfg.NodeName != "" && item.Spec.NodeName == e.cfg.NodeName {
			onNode = item.Metadata.Name
			break
		}
	}
	pod := onNode
	if pod == "" {
		if e.cfg.NodeName != "" && first != "" {
			logger.Warnf("no %s pod on node %s, using %s", e.cfg.LabelSelector, e.cfg.NodeName, first)
		}
		pod = first
	}
	if pod == "" {
		return "", &TransportError{Op: "kubectl get pods", Err: fmt.Errorf("no running pod matches %q in namespace %q", e.cfg.LabelSelector, e.cfg.Namespace)}
	}
	logger.WithField("pod", pod).Debugf("resolved ovn pod")
	e.pod = pod
	return pod, nil
}
