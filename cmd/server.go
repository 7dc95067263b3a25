/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gmpstack/docflow/internal/api"
	"github.com/gmpstack/docflow/internal/config"
	"github.com/gmpstack/docflow/internal/container"
	"github.com/gmpstack/docflow/internal/metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Docflow API server.
The server listens on the configured host and port and provides
REST API interfaces for workflow templates and approval instances,
plus a websocket stream of approval events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. 配置日志
		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to configure logger: %w", err)
		}
		logrus.SetFormatter(logger.Formatter)
		logrus.SetLevel(logger.Level)
		logrus.SetOutput(logger.Out)

		// 3. 初始化容器
		ctr, err := container.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 4. 启动后台组件: WebSocket Hub、超时扫描器、指标采集器
		go ctr.Hub().Run()
		ctr.Sweeper().Start()
		defer ctr.Sweeper().Stop()

		collector := metrics.NewCollector(ctr.DB(), 30*time.Second)
		collector.Start()
		defer collector.Stop()

		// 5. 设置路由
		router := api.SetupRoutes(api.RouterDeps{
			DB:              ctr.DB(),
			Config:          cfg,
			Hub:             ctr.Hub(),
			Validator:       ctr.KeycloakValidator(),
			FGAClient:       ctr.OpenFGAClient(),
			WorkflowService: ctr.WorkflowService(),
			ApprovalService: ctr.ApprovalService(),
			QueryService:    ctr.QueryService(),
			AuditLogService: ctr.AuditLogService(),
		})
		router.NoRoute(func(c *gin.Context) {
			api.Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
		})

		// 6. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		go func() {
			logrus.WithField("addr", addr).Info("Server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.WithError(err).Fatal("Failed to start server")
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logrus.Info("Shutting down server...")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logrus.WithError(err).Fatal("Server forced to shutdown")
		}

		logrus.Info("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志
	serverCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}

// LoadConfig 加载配置
func LoadConfig(configPath string) (*config.Config, error) {
	return config.Load(configPath)
}
