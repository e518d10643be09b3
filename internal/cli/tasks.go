package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gavelhq/gavel/internal/config"
	"github.com/gavelhq/gavel/internal/kvstore"
	"github.com/gavelhq/gavel/internal/tasks"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect asynchronous review tasks",
}

// openTaskStore opens the task store against the configured database.
func openTaskStore() (*tasks.Store, func(), error) {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		return nil, nil, err
	}
	kv, err := kvstore.Open(cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}
	store := tasks.NewStore(kv, time.Duration(cfg.Cache.TaskRetentionHours)*time.Hour)
	return store, func() { kv.Close() }, nil
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closer, err := openTaskStore()
		if err != nil {
			return err
		}
		defer closer()

		all := store.List(context.Background())
		if len(all) == 0 {
			fmt.Fprintln(os.Stdout, "No tasks.")
			return nil
		}
		for _, task := range all {
			fmt.Fprintf(os.Stdout, "%s  %-10s %3d%%  %s\n",
				task.ID, task.Status, task.Progress, task.Message)
		}
		return nil
	},
}

var tasksGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one task as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closer, err := openTaskStore()
		if err != nil {
			return err
		}
		defer closer()

		task, ok := store.Get(context.Background(), args[0])
		if !ok {
			fmt.Fprintf(os.Stderr, "Task not found: %s\n", args[0])
			exitCode = ExitRuntimeError
			return nil
		}
		data, err := json.MarshalIndent(task, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	},
}

var tasksSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove index entries for expired tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closer, err := openTaskStore()
		if err != nil {
			return err
		}
		defer closer()

		removed := store.Sweep(context.Background())
		fmt.Fprintf(os.Stdout, "Removed %d expired task references\n", removed)
		return nil
	},
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksGetCmd)
	tasksCmd.AddCommand(tasksSweepCmd)
	tasksCmd.PersistentFlags().StringVar(&flagStore, "store", "", "Path to the local state database")
}
