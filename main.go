package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "abtest",
		Short:         "Model routing A/B experiment service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "配置文件路径")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newEvaluateCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		log.Fatalf("执行失败: %v", err)
	}
}

func setupLogger(level slog.Level) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
