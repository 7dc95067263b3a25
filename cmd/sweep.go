/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/gmpstack/docflow/internal/config"
	"github.com/gmpstack/docflow/internal/container"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// sweepCmd represents the sweep command
// 供外部调度器(cron 等)单次触发超时扫描,服务进程内另有周期扫描
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single overdue-step escalation sweep",
	Long: `Scan all in-progress approval instances whose current step is past
its deadline and send escalation notifications. The sweep only notifies;
it never advances instances or writes decision ledger entries, so it is
safe to run from an external scheduler at any frequency.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. 初始化容器
		ctr, err := container.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 3. 执行一轮扫描
		timeout, _ := cmd.Flags().GetInt("timeout")
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
		defer cancel()

		notified, err := ctr.ApprovalService().SweepOverdue(ctx)
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}

		logrus.WithField("notified", notified).Info("Escalation sweep completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	sweepCmd.Flags().Int("timeout", 60, "Sweep timeout in seconds")
}
