package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"model-abtest/internal/config"
	"model-abtest/internal/db"
	"model-abtest/internal/metrics"
	"model-abtest/internal/router"
	"model-abtest/internal/service"
	"model-abtest/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			setupLogger(cfg.Log.SlogLevel())

			shutdownTracer, err := initTracer(cmd.Context(), cfg.Tracing)
			if err != nil {
				return fmt.Errorf("初始化 tracer 失败: %w", err)
			}
			defer shutdownTracer(context.Background())

			st, err := openStore(cfg)
			if err != nil {
				return err
			}

			gin.SetMode(cfg.Server.Mode)
			svcCtx := service.NewServiceContext(st, metrics.New(nil))
			r := router.SetupRouter(svcCtx, cfg)

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("服务启动", "addr", srv.Addr, "storage", cfg.Storage.Driver)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("启动服务失败: %w", err)
				}
				return nil
			case <-quit:
			}

			slog.Info("正在关闭服务")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			setupLogger(cfg.Log.SlogLevel())

			gdb, err := db.Open(cfg)
			if err != nil {
				return err
			}
			if err := db.Migrate(gdb); err != nil {
				return err
			}
			slog.Info("迁移完成", "dbname", cfg.Database.DBName)
			return nil
		},
	}
}

func newEvaluateCmd(configPath *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "evaluate <experiment-id>",
		Short: "评估实验并输出结果",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "markdown" {
				return fmt.Errorf("不支持的输出格式: %s", format)
			}

			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			setupLogger(cfg.Log.SlogLevel())

			st, err := openStore(cfg)
			if err != nil {
				return err
			}

			evaluator := service.NewEvaluator(st, service.NewWinnerSelector(service.HeuristicConfidence{}), nil)
			results, err := evaluator.Evaluate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), results, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "输出格式: json | markdown")
	return cmd
}

func writeResults(w io.Writer, results *service.ExperimentResults, format string) error {
	if format == "markdown" {
		_, err := io.WriteString(w, service.RenderResultsMarkdown(results))
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		slog.Warn("使用内存存储，数据不会持久化")
		return store.NewMemoryStore(), nil
	case "mysql":
		gdb, err := db.InitDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("初始化数据库失败: %w", err)
		}
		return store.NewGormStore(gdb), nil
	default:
		return nil, fmt.Errorf("未知的 storage.driver: %s", cfg.Storage.Driver)
	}
}

// initTracer 配置了 endpoint 才导出 trace，否则使用全局 noop provider
func initTracer(ctx context.Context, cfg config.TracingConfig) (func(context.Context), error) {
	if cfg.Endpoint == "" {
		return func(context.Context) {}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", cfg.ServiceName)))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Error("关闭 tracer 失败", "error", err)
		}
	}, nil
}
