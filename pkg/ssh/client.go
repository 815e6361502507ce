package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// Config SSH配置
type Config struct {
	Timeout   time.Duration `yaml:"timeout"`
	KeepAlive time.Duration `yaml:"keep_alive"`
}

// Client SSH客户端，单连接上按需创建会话执行命令
type Client struct {
	config     *Config
	connection *ssh.Client
	mutex      sync.RWMutex
	// 保存最近一次成功连接的参数，用于在会话创建失败（如 EOF）时自动重连
	info *ConnectionInfo
	stop chan struct{}
}

// ConnectionInfo SSH连接信息
type ConnectionInfo struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	KeyFile  string `json:"key_file,omitempty"`
}

// CommandResult 命令执行结果，标准输出与标准错误分开保存
type CommandResult struct {
	Command  string        `json:"command"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// ErrNotConnected 连接尚未建立或已关闭
var ErrNotConnected = errors.New("SSH connection not established")

// NewClient 创建SSH客户端
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{Timeout: 10 * time.Second}
	}
	return &Client{config: config}
}

// authMethods 密码同时走 password 与 keyboard-interactive；密钥文件优先
func authMethods(info *ConnectionInfo) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if info.KeyFile != "" {
		pem, err := os.ReadFile(info.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		var signer ssh.Signer
		if info.Password != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(info.Password))
		} else {
			signer, err = ssh.ParsePrivateKey(pem)
		}
		if err != nil {
			return nil, fmt.Errorf("parse key file: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if info.Password != "" {
		methods = append(methods,
			ssh.Password(info.Password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = info.Password
				}
				return answers, nil
			}),
		)
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH auth method configured for %s@%s", info.Username, info.Host)
	}
	return methods, nil
}

// Connect 连接SSH服务器
func (c *Client) Connect(ctx context.Context, info *ConnectionInfo) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.connectLocked(ctx, info)
}

func (c *Client) connectLocked(ctx context.Context, info *ConnectionInfo) error {
	auth, err := authMethods(info)
	if err != nil {
		return err
	}
	c.info = info

	sshConfig := &ssh.ClientConfig{
		User:            info.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.config.Timeout,
	}

	port := info.Port
	if port <= 0 {
		port = 22
	}
	address := net.JoinHostPort(info.Host, fmt.Sprint(port))

	dialer := &net.Dialer{Timeout: c.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, sshConfig)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SSH connection: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	c.connection = ssh.NewClient(sshConn, chans, reqs)
	c.stop = make(chan struct{})
	go c.keepAlive(c.connection, c.stop)
	return nil
}

// newSessionWithRetry 创建会话（带重试），EOF 时按保存的参数重连一次
func (c *Client) newSessionWithRetry(ctx context.Context) (*ssh.Session, error) {
	backoffs := []time.Duration{0, 200 * time.Millisecond, 500 * time.Millisecond}
	var lastErr error
	reconnected := false
	for _, d := range backoffs {
		if d > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d):
			}
		}
		c.mutex.RLock()
		conn, info := c.connection, c.info
		c.mutex.RUnlock()
		if conn == nil {
			lastErr = ErrNotConnected
		} else {
			sess, err := conn.NewSession()
			if err == nil {
				return sess, nil
			}
			lastErr = err
		}

		if !reconnected && info != nil && (conn == nil || strings.Contains(strings.ToLower(lastErr.Error()), "eof")) {
			reconnected = true
			c.mutex.Lock()
			c.closeLocked()
			if err := c.connectLocked(ctx, info); err != nil {
				lastErr = err
			}
			c.mutex.Unlock()
		}
	}
	return nil, lastErr
}

// Run 执行单个命令。远端返回非零退出码时 err 为 nil，由调用方检查 ExitCode；
// 连接、会话或取消等通道级失败返回 err。
func (c *Client) Run(ctx context.Context, command string) (*CommandResult, error) {
	start := time.Now()
	result := &CommandResult{Command: command, ExitCode: -1}

	session, err := c.newSessionWithRetry(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		<-done
		result.Duration = time.Since(start)
		return result, ctx.Err()
	case err = <-done:
	}

	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}
		return result, err
	}
	result.ExitCode = 0
	return result, nil
}

// Close 关闭连接
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	if c.connection != nil {
		err := c.connection.Close()
		c.connection = nil
		return err
	}
	return nil
}

// IsConnected 轻量级健康检查：发送 keepalive 请求而不创建会话
func (c *Client) IsConnected() bool {
	c.mutex.RLock()
	conn := c.connection
	c.mutex.RUnlock()
	if conn == nil {
		return false
	}
	_, _, err := conn.SendRequest("keepalive@openssh.com", false, nil)
	return err == nil
}

func (c *Client) keepAlive(conn *ssh.Client, stop <-chan struct{}) {
	if c.config.KeepAlive <= 0 {
		return
	}
	ticker := time.NewTicker(c.config.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, _, err := conn.SendRequest("keepalive@openssh.com", false, nil); err != nil {
				// 连接已断开，置空以便下次执行时重连
				c.mutex.Lock()
				if c.connection == conn {
					c.closeLocked()
				}
				c.mutex.Unlock()
				return
			}
		}
	}
}

// QuoteArgs 将参数向量拼接为远端 shell 可安全执行的命令行
func QuoteArgs(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = quote(a)
	}
	return strings.Join(quoted, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:,@%+", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
