package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"todolist/internal/client"
	"todolist/internal/config"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos in id order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		todos, err := c.ListTodos(cmd.Context())
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE")
		for _, t := range todos {
			fmt.Fprintf(w, "%d\t%s\n", t.ID, t.Title)
		}
		return w.Flush()
	},
}

var addCmd = &cobra.Command{
	Use:   "add <title>...",
	Short: "Create a todo; words are joined with spaces",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		todo, err := c.CreateTodo(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("add: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created #%d %s\n", todo.ID, todo.Title)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Delete todos by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]int64, 0, len(args))
		for _, a := range args {
			id, err := strconv.ParseInt(a, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", a)
			}
			ids = append(ids, id)
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := c.DeleteTodo(cmd.Context(), id); err != nil {
				return fmt.Errorf("rm %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted #%d\n", id)
		}
		return nil
	},
}

func newClient() (*client.Client, error) {
	cfg, err := config.LoadClient(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	baseURL := cfg.Client.BaseURL
	if flagAPI != "" {
		baseURL = flagAPI
	}
	return client.New(baseURL, cfg.Client.Timeout), nil
}
