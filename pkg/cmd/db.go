package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/quickdrop/pkg/app"
	"github.com/yeisme/quickdrop/pkg/internal/model"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	// 不依赖 db.auto_migrate，显式执行一次迁移.
	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			mgr, err := app.OpenStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			if err := model.AutoMigrate(ctx, mgr.GetDBClient().GetDB()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables on %s\n", len(model.All()), cfg.DB.Type)

			return nil
		},
	}
)

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbMigrateCmd)
}
