package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	OVN      OVNConfig      `mapstructure:"ovn"`
	Executor ExecutorConfig `mapstructure:"executor"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// SQLiteConfig SQLite配置，Path 为空时不启用缓存索引与刷新日志
type SQLiteConfig struct {
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StorageConfig 缓存镜像存储配置
type StorageConfig struct {
	Minio MinioConfig `mapstructure:"minio"`
}

// MinioConfig 对象存储配置（缓存历史条目的异地副本）
type MinioConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Secure    bool   `mapstructure:"secure"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// OVNConfig 采集与缓存配置
type OVNConfig struct {
	CacheDir           string        `mapstructure:"cache_dir"`
	LoadCacheOnStartup bool          `mapstructure:"load_cache_on_startup"`
	FetchTimeout       time.Duration `mapstructure:"fetch_timeout"`
	// Concurrency 全量刷新时同时执行的类型数
	Concurrency int `mapstructure:"concurrency"`
	// JSONFormat 是否追加 --format=json
	JSONFormat    bool   `mapstructure:"json_format"`
	CommandPrefix string `mapstructure:"command_prefix"`
	// Commands 按类型覆盖完整命令，例如 switch: "ovn-nbctl --format=json list Logical_Switch"
	Commands map[string]string `mapstructure:"commands"`
	// Kinds 参与全量刷新的类型，为空表示全部
	Kinds []string `mapstructure:"kinds"`
}

// ExecutorConfig 命令执行通道配置
type ExecutorConfig struct {
	// Mode kubectl | ssh | local
	Mode    string        `mapstructure:"mode"`
	Kubectl KubectlConfig `mapstructure:"kubectl"`
	SSH     SSHConfig     `mapstructure:"ssh"`
}

// KubectlConfig 通过 kubectl exec 进入 nbdb 容器
type KubectlConfig struct {
	Binary        string `mapstructure:"binary"`
	Kubeconfig    string `mapstructure:"kubeconfig"`
	Context       string `mapstructure:"context"`
	Namespace     string `mapstructure:"namespace"`
	LabelSelector string `mapstructure:"label_selector"`
	Container     string `mapstructure:"container"`
	// NodeName 优先选择该节点上的 Pod
	NodeName string `mapstructure:"node_name"`
	// Pod 显式指定 Pod 时跳过查找
	Pod string `mapstructure:"pod"`
}

// SSHConfig SSH 执行配置
type SSHConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	KeyFile           string        `mapstructure:"key_file"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval"`
}

var globalConfig *Config

// Load 加载配置文件。configPath 为空且默认路径下找不到配置文件时使用默认值。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 默认配置文件路径
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	// 设置环境变量前缀
	v.SetEnvPrefix("OVN_EXPLORER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 兼容旧键名：ovn.timeout（秒） -> ovn.fetch_timeout
	if !v.InConfig("ovn.fetch_timeout") && v.IsSet("ovn.timeout") {
		if sec := v.GetInt("ovn.timeout"); sec > 0 {
			config.OVN.FetchTimeout = time.Duration(sec) * time.Second
		}
	}

	// 环境变量替换
	config = replaceEnvVars(config)
	config.OVN.CacheDir = expandHome(config.OVN.CacheDir)
	config.Executor.SSH.KeyFile = expandHome(config.Executor.SSH.KeyFile)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &config
	return &config, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Executor.Mode)) {
	case "kubectl", "local":
	case "ssh":
		if strings.TrimSpace(c.Executor.SSH.Host) == "" {
			return fmt.Errorf("executor.ssh.host is required when executor.mode is ssh")
		}
	default:
		return fmt.Errorf("unsupported executor.mode %q (kubectl|ssh|local)", c.Executor.Mode)
	}
	if strings.TrimSpace(c.OVN.CacheDir) == "" {
		return fmt.Errorf("ovn.cache_dir must not be empty")
	}
	if c.OVN.FetchTimeout <= 0 {
		return fmt.Errorf("ovn.fetch_timeout must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)

	// 默认启用启动时加载缓存，缓存目录位于用户目录下
	v.SetDefault("ovn.cache_dir", "~/.ovn_explorer/cache")
	v.SetDefault("ovn.load_cache_on_startup", true)
	v.SetDefault("ovn.fetch_timeout", 30*time.Second)
	v.SetDefault("ovn.concurrency", 4)
	v.SetDefault("ovn.json_format", true)
	v.SetDefault("ovn.command_prefix", "ovn-nbctl")

	// OpenShift OVN-Kubernetes 默认部署位置
	v.SetDefault("executor.mode", "kubectl")
	v.SetDefault("executor.kubectl.binary", "kubectl")
	v.SetDefault("executor.kubectl.namespace", "openshift-ovn-kubernetes")
	v.SetDefault("executor.kubectl.label_selector", "app=ovnkube-node")
	v.SetDefault("executor.kubectl.container", "nbdb")

	v.SetDefault("executor.ssh.port", 22)
	v.SetDefault("executor.ssh.connect_timeout", 10*time.Second)
	v.SetDefault("executor.ssh.keep_alive_interval", 30*time.Second)

	v.SetDefault("storage.minio.enabled", false)
	v.SetDefault("storage.minio.bucket", "ovn-explorer")
	v.SetDefault("storage.minio.prefix", "cache")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
}

// Get 获取全局配置
func Get() *Config {
	return globalConfig
}

// replaceEnvVars 替换 ${VAR} 形式的敏感配置
func replaceEnvVars(config Config) Config {
	config.Executor.SSH.Password = envValue(config.Executor.SSH.Password)
	config.Storage.Minio.AccessKey = envValue(config.Storage.Minio.AccessKey)
	config.Storage.Minio.SecretKey = envValue(config.Storage.Minio.SecretKey)
	return config
}

func envValue(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
	}
	return s
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
