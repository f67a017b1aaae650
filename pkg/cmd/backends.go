package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/yeisme/quickdrop/pkg/app"
	"github.com/yeisme/quickdrop/pkg/internal/storage/db"
	"github.com/yeisme/quickdrop/pkg/internal/storage/kv"
	"github.com/yeisme/quickdrop/pkg/internal/storage/mq"
)

// listCmd 生成打印已注册后端类型的 list 子命令.
func listCmd[T ~string](what string, registered func() []T) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "list all registered " + what + " types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			names := make([]string, 0)
			for _, t := range registered() {
				names = append(names, string(t))
			}

			slices.Sort(names)

			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s types:\n", what)

			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+n)
			}
		},
	}
}

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "Key-Value store related commands",
		Aliases: []string{"keyvalue"},
	}

	kvKeysCmd = &cobra.Command{
		Use:   "keys [pattern]",
		Short: "list live keys in the configured kv store, e.g. 'quickdrop:tombstone:*'",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}

			mgr, err := app.OpenStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}

			keys, err := mgr.KV.Keys(cmd.Context(), pattern)
			if err != nil {
				return err
			}

			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}

			return nil
		},
	}

	mqCmd = &cobra.Command{
		Use:     "mq",
		Short:   "Message queue related commands",
		Aliases: []string{"messagequeue"},
	}
)

// registerBackendCommands 注册 db、kv、mq 的后端列表命令以及 kv keys.
func registerBackendCommands() {
	dbCmd.AddCommand(listCmd("database", db.GetRegisteredDBTypes))
	kvCmd.AddCommand(listCmd("kv", kv.GetRegisteredKVTypes), kvKeysCmd)
	mqCmd.AddCommand(listCmd("mq", mq.GetRegisteredMQTypes))

	rootCmd.AddCommand(kvCmd, mqCmd)
}
