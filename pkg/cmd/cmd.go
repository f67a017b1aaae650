// Package cmd 提供 quickdrop 命令行入口：服务启动、配置查看、存储与运维子命令.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/quickdrop/pkg/app"
	"github.com/yeisme/quickdrop/pkg/configs"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:           "quickdrop",
		Short:         "QuickDrop: single-use, short-lived file share links",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start the http server, reaper and audit subscriber",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.NewApp(ctx, cfg)
			if err != nil {
				return err
			}

			return a.Run(ctx)
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "quickdrop", configs.AppVersion)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")

	rootCmd.AddCommand(serveCmd, versionCmd)

	registerConfigsCommands()
	registerDBCommands()
	registerBackendCommands()
	registerOpsCommands()
}

// bootstrap 加载配置，--debug 会覆盖 server.debug.
func bootstrap() (*configs.AppConfig, error) {
	cfg, err := app.Bootstrap(configPath)
	if err != nil {
		return nil, err
	}

	if debug {
		cfg.Server.Debug = true
	}

	return cfg, nil
}

// withStorage 打开存储与业务服务后执行 fn.
func withStorage(ctx context.Context, fn func(ctx context.Context, svc *app.Services) error) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}

	mgr, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	svc, err := app.NewServices(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	defer svc.Close()

	return fn(ctx, svc)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
