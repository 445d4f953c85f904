// Package cli soilsync 命令行入口
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-soilsync/config"
	"go-soilsync/logger"
)

// state 各子命令共享的配置与日志
type state struct {
	configPath string
	cfg        config.Config
	log        *logger.Logger
}

// NewRootCommand 创建根命令，不带子命令时运行 serve
func NewRootCommand() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:           "soilsync",
		Short:         "Soil test based fertilizer recommendations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(st.configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			st.cfg, st.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if st.log != nil {
				st.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&st.configPath, "config", "c", "", "YAML config file (default $SOILSYNC_CONFIG)")

	serve := newServeCommand(st)
	root.RunE = serve.RunE
	root.AddCommand(
		serve,
		newRecommendCommand(st),
		newBatchCommand(st),
		newSimulateCommand(st),
		newMigrateCommand(st),
	)
	return root
}

// Execute 运行命令行，收到 SIGINT/SIGTERM 时取消
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "soilsync:", err)
		stop()
		os.Exit(1)
	}
}
