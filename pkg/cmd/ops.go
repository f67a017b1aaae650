package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yeisme/quickdrop/pkg/app"
	"github.com/yeisme/quickdrop/pkg/internal/catalog"
)

var (
	reapCmd = &cobra.Command{
		Use:   "reap",
		Short: "run one reaper pass and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				res, err := svc.Reaper.RunOnce(ctx)
				if err != nil {
					return err
				}

				return printJSON(cmd, res)
			})
		},
	}

	catalogCmd = &cobra.Command{
		Use:   "catalog",
		Short: "catalog file commands",
	}

	catalogPassword   string
	catalogAutoDelete bool
	catalogLimit      int

	catalogAddCmd = &cobra.Command{
		Use:   "add <file>",
		Short: "upload a local file into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			st, err := f.Stat()
			if err != nil {
				return err
			}

			name := filepath.Base(args[0])

			return withStorage(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				info, err := svc.Catalog.AddFile(ctx, catalog.AddFileInput{
					FileName:            name,
					ContentType:         mime.TypeByExtension(filepath.Ext(name)),
					Password:            catalogPassword,
					DeleteAfterDownload: catalogAutoDelete,
					Body:                f,
					Size:                st.Size(),
				})
				if err != nil {
					return err
				}

				return printJSON(cmd, info)
			})
		},
	}

	catalogListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list catalog files",
		Aliases: []string{"ls", "l"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				files, err := svc.Catalog.ListFiles(ctx, catalogLimit)
				if err != nil {
					return err
				}

				return printJSON(cmd, files)
			})
		},
	}
)

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	return nil
}

// registerOpsCommands 注册运维命令.
func registerOpsCommands() {
	catalogAddCmd.Flags().StringVar(&catalogPassword, "password", "", "require this password for downloads")
	catalogAddCmd.Flags().BoolVar(&catalogAutoDelete, "delete-after-download", false, "delete the file after its first download")
	catalogListCmd.Flags().IntVar(&catalogLimit, "limit", 50, "maximum number of files to list")

	catalogCmd.AddCommand(catalogAddCmd, catalogListCmd)
	rootCmd.AddCommand(reapCmd, catalogCmd)
}
