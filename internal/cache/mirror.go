package cache

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ovnexplorer/ovnexplorer/internal/config"
	"github.com/ovnexplorer/ovnexplorer/internal/model"
	"github.com/ovnexplorer/ovnexplorer/pkg/logger"
)

// Mirror 缓存条目的异地副本
type Mirror interface {
	Put(ctx context.Context, kind model.Kind, name string, data []byte) (string, error)
}

// MinioMirror 将历史条目复制到 MinIO
type MinioMirror struct {
	client   *minio.Client
	endpoint string
	bucket   string
	prefix   string

	mu            sync.Mutex
	bucketEnsured bool
	// retryBackoff 对象写入重试间隔
	retryBackoff []time.Duration
}

// NewMinioMirror 根据配置创建 MinIO 镜像，未启用时返回 nil
func NewMinioMirror(cfg config.MinioConfig) (*MinioMirror, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" || cfg.Port <= 0 {
		return nil, fmt.Errorf("minio configuration incomplete; host/port missing")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("minio bucket not configured")
	}
	endpoint := fmt.Sprintf("%s:%d", host, cfg.Port)

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 5 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   16,
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.Secure,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client initialization failed: %w", err)
	}
	logger.Infof("cache mirror enabled: minio://%s/%s", endpoint, bucket)
	return &MinioMirror{
		client:       client,
		endpoint:     endpoint,
		bucket:       bucket,
		prefix:       strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		retryBackoff: []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
	}, nil
}

// ObjectName 对象路径：prefix/kind/name
func (m *MinioMirror) ObjectName(kind model.Kind, name string) string {
	return objectName(m.prefix, kind, name)
}

func objectName(prefix string, kind model.Kind, name string) string {
	if prefix == "" {
		return path.Join(string(kind), name)
	}
	return path.Join(prefix, string(kind), name)
}

// Put 写入对象，失败按退避重试
func (m *MinioMirror) Put(ctx context.Context, kind model.Kind, name string, data []byte) (string, error) {
	if m == nil || m.client == nil {
		return "", fmt.Errorf("minio client not initialized")
	}
	if err := m.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("minio ensure bucket failed: %w", err)
	}

	obj := m.ObjectName(kind, name)
	var lastErr error
	for i, wait := range m.retryBackoff {
		attemptCtx, cancel := attemptContext(ctx, 10*time.Second)
		_, err := m.client.PutObject(attemptCtx, m.bucket, obj, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/json"})
		cancel()
		if err == nil {
			return "minio://" + path.Join(m.bucket, obj), nil
		}
		lastErr = err
		if i == len(m.retryBackoff)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("minio put object to %s: %w", m.endpoint, ctx.Err())
		case <-time.After(wait):
		}
	}
	return "", fmt.Errorf("minio put object failed after retries: %w", lastErr)
}

// ensureBucket 校验并创建 bucket，成功后不再重复检查
func (m *MinioMirror) ensureBucket(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bucketEnsured {
		return nil
	}
	cctx, cancel := attemptContext(ctx, 10*time.Second)
	defer cancel()
	exists, err := m.client.BucketExists(cctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := m.client.MakeBucket(cctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
	}
	m.bucketEnsured = true
	return nil
}

// attemptContext 构造限时上下文，尊重父上下文的剩余截止时间
func attemptContext(parent context.Context, prefer time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := parent.Deadline(); ok {
		remain := time.Until(deadline)
		if remain > time.Second && prefer < remain {
			return context.WithTimeout(parent, prefer)
		}
		if remain > time.Second {
			return context.WithTimeout(parent, remain-time.Second)
		}
		return context.WithTimeout(parent, time.Second)
	}
	return context.WithTimeout(parent, prefer)
}
