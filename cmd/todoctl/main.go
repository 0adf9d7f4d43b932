// Command todoctl administers a todo list: it bootstraps and seeds the
// database directly and talks to a running API for everything else.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagAPI     string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "todoctl",
	Short:         "Administer the todo list",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", os.Getenv("CONFIG_PATH"), "config file (default: $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagAPI, "api", "", "API base URL (overrides client.base_url and $TODO_API)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
