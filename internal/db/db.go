package db

import (
	"fmt"
	"log/slog"

	"model-abtest/internal/config"
	"model-abtest/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 连接数据库，不做迁移
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if cfg.Log.Level != "debug" {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	gdb, err := gorm.Open(mysql.Open(cfg.Database.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	return gdb, nil
}

// Migrate 自动迁移；分配与结果表通常由网关建好，这里保证本地环境可用
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&model.Experiment{},
		&model.Assignment{},
		&model.Outcome{},
	); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	gdb, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}

	slog.Info("数据库初始化成功", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)
	return gdb, nil
}
