package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// gin 运行模式：debug/release/test
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Charset  string `yaml:"charset"`
}

// DSN 拼接 MySQL 连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.DBName,
		d.Charset,
	)
}

type StorageConfig struct {
	// mysql / memory（memory 仅用于本地调试，进程退出即丢失）
	Driver string `yaml:"driver"`
}

type RateLimitConfig struct {
	// 每秒请求数；<=0 表示不限流
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TracingConfig struct {
	// OTLP gRPC 地址，为空则不导出
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

type MetricsConfig struct {
	Path string `yaml:"path"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	config.applyDefaults()

	return config, nil
}

// Default 返回未读取配置文件时的默认值
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "mysql"
	}
	if c.RateLimit.Burst <= 0 && c.RateLimit.RPS > 0 {
		c.RateLimit.Burst = int(c.RateLimit.RPS * 2)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "model-abtest"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// SlogLevel 把配置里的日志级别转成 slog.Level，未知值按 info 处理
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
