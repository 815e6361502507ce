package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovnexplorer/ovnexplorer/internal/config"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	respond func(name string, args []string) (*Result, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()
	return f.respond(name, args)
}

const podsJSON = `{"items":[
 {"metadata":{"name":"ovnkube-node-aaa"},"spec":{"nodeName":"worker-0"},"status":{"phase":"Pending"}},
 {"metadata":{"name":"ovnkube-node-bbb"},"spec":{"nodeName":"worker-1"},"status":{"phase":"Running"}},
 {"metadata":{"name":"ovnkube-node-ccc"},"spec":{"nodeName":"worker-2"},"status":{"phase":"Running"}}
]}`

func kubectlCfg() config.KubectlConfig {
	return config.KubectlConfig{
		Binary:        "kubectl",
		Namespace:     "openshift-ovn-kubernetes",
		LabelSelector: "app=ovnkube-node",
		Container:     "nbdb",
	}
}

func TestKubectlPrefersConfiguredNode(t *testing.T) {
	cfg := kubectlCfg()
	cfg.NodeName = "worker-2"
	runner := &fakeRunner{respond: func(_ string, args []string) (*Result, error) {
		if args[2] == "get" {
			return &Result{Stdout: podsJSON}, nil
		}
		return &Result{Stdout: "ok"}, nil
	}}
	e := NewKubectlExecutor(cfg, runner)

	res, err := e.Execute(context.Background(), []string{"ovn-nbctl", "--format=json", "list", "Logical_Switch"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Stdout)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"-n", "openshift-ovn-kubernetes", "get", "pods", "-o", "json", "-l", "app=ovnkube-node"}, runner.calls[0].args)
	assert.Equal(t, []string{"-n", "openshift-ovn-kubernetes", "exec", "ovnkube-node-ccc", "-c", "nbdb", "--",
		"ovn-nbctl", "--format=json", "list", "Logical_Switch"}, runner.calls[1].args)

	// Pod 解析结果被复用
	_, err = e.Execute(context.Background(), []string{"ovn-nbctl", "show"})
	require.NoError(t, err)
	assert.Len(t, runner.calls, 3)
}

func TestKubectlFallsBackToFirstRunningPod(t *testing.T) {
	cfg := kubectlCfg()
	cfg.NodeName = "worker-9"
	runner := &fakeRunner{respond: func(string, []string) (*Result, error) {
		return &Result{Stdout: podsJSON}, nil
	}}
	pod, err := NewKubectlExecutor(cfg, runner).Pod(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ovnkube-node-bbb", pod)
}

func TestKubectlNoPods(t *testing.T) {
	runner := &fakeRunner{respond: func(string, []string) (*Result, error) {
		return &Result{Stdout: `{"items":[]}`}, nil
	}}
	_, err := NewKubectlExecutor(kubectlCfg(), runner).Execute(context.Background(), []string{"ovn-nbctl", "show"})
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}

func TestKubectlClassifiesFailures(t *testing.T) {
	cfg := kubectlCfg()
	cfg.Pod = "ovnkube-node-fixed"
	stderr := ""
	runner := &fakeRunner{respond: func(string, []string) (*Result, error) {
		return &Result{Stderr: stderr, ExitCode: 1}, nil
	}}
	e := NewKubectlExecutor(cfg, runner)

	// 容器内命令失败：返回结果，由调用方转为 CommandError
	stderr = "ovn-nbctl: unix:/var/run/ovn/ovnnb_db.sock: database connection failed\ncommand terminated with exit code 1"
	res, err := e.Execute(context.Background(), []string{"ovn-nbctl", "show"})
	require.NoError(t, err)
	var ce *CommandError
	require.ErrorAs(t, Check([]string{"ovn-nbctl", "show"}, res), &ce)
	assert.Equal(t, 1, ce.ExitCode)
	assert.Contains(t, ce.Error(), "database connection failed")

	// kubectl 无法连接集群
	stderr = "Unable to connect to the server: dial tcp 10.0.0.1:6443: i/o timeout"
	_, err = e.Execute(context.Background(), []string{"ovn-nbctl", "show"})
	var te *TransportError
	assert.ErrorAs(t, err, &te)
	// 显式配置的 Pod 不会被清除
	pod, _ := e.Pod(context.Background())
	assert.Equal(t, "ovnkube-node-fixed", pod)
}

func TestKubectlRunnerErrorIsTransport(t *testing.T) {
	cfg := kubectlCfg()
	cfg.Pod = "p"
	runner := &fakeRunner{respond: func(string, []string) (*Result, error) {
		return nil, context.DeadlineExceeded
	}}
	_, err := NewKubectlExecutor(cfg, runner).Execute(context.Background(), []string{"x"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKubectlGlobalFlags(t *testing.T) {
	cfg := kubectlCfg()
	cfg.Kubeconfig = "/etc/kube/config"
	cfg.Context = "prod"
	cfg.Pod = "p"
	runner := &fakeRunner{respond: func(string, []string) (*Result, error) { return &Result{}, nil }}
	_, err := NewKubectlExecutor(cfg, runner).Execute(context.Background(), []string{"ovn-nbctl"})
	require.NoError(t, err)
	assert.Equal(t, "--kubeconfig /etc/kube/config --context prod -n openshift-ovn-kubernetes exec p -c nbdb -- ovn-nbctl",
		strings.Join(runner.calls[0].args, " "))
}

func TestLocalExecutor(t *testing.T) {
	runner := &fakeRunner{respond: func(name string, args []string) (*Result, error) {
		if name == "missing" {
			return nil, errors.New("executable file not found in $PATH")
		}
		return &Result{Stdout: strings.Join(args, ","), ExitCode: 0}, nil
	}}
	e := NewLocalExecutor(runner)

	res, err := e.Execute(context.Background(), []string{"ovn-nbctl", "list", "ACL"})
	require.NoError(t, err)
	assert.Equal(t, "list,ACL", res.Stdout)

	_, err = e.Execute(context.Background(), []string{"missing"})
	var te *TransportError
	assert.ErrorAs(t, err, &te)

	_, err = e.Execute(context.Background(), nil)
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check([]string{"a"}, &Result{}))
	assert.NoError(t, Check([]string{"a"}, nil))
	err := Check([]string{"a"}, &Result{ExitCode: 2, Stderr: strings.Repeat("x", 500)})
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Less(t, len(err.Error()), 300)
}

func TestFromConfig(t *testing.T) {
	e, err := FromConfig(config.ExecutorConfig{Mode: "kubectl", Kubectl: kubectlCfg()})
	require.NoError(t, err)
	assert.IsType(t, &KubectlExecutor{}, e)

	e, err = FromConfig(config.ExecutorConfig{Mode: "SSH", SSH: config.SSHConfig{Host: "h", Username: "u", Password: "p"}})
	require.NoError(t, err)
	assert.IsType(t, &SSHExecutor{}, e)
	_, isCloser := e.(Closer)
	assert.True(t, isCloser)

	e, err = FromConfig(config.ExecutorConfig{Mode: "local"})
	require.NoError(t, err)
	assert.IsType(t, &LocalExecutor{}, e)

	_, err = FromConfig(config.ExecutorConfig{Mode: "telnet"})
	assert.Error(t, err)
}

func TestSSHExecutorConnectFailureIsTransport(t *testing.T) {
	e := NewSSHExecutor(config.SSHConfig{Host: "127.0.0.1", Port: 1, Username: "u"})
	_, err := e.Execute(context.Background(), []string{"ovn-nbctl", "show"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "ssh connect", te.Op)
	assert.NoError(t, e.Close())
}
