package main

import (
	"errors"
	"fmt"
	"os"

	"todolist/internal/config"
	"todolist/internal/export"

	"github.com/spf13/cobra"
)

var (
	exportXLSX  string
	exportSheet bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the list to an .xlsx file or a Google Sheet",
	Long: `Export fetches the list from the API and writes it to --xlsx FILE, to the
spreadsheet configured under google: when --sheet is set, or both.

Example:
  todoctl export --xlsx todos.xlsx
  todoctl export --sheet --config configs/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportXLSX, "xlsx", "", "write an Excel workbook to this path")
	exportCmd.Flags().BoolVar(&exportSheet, "sheet", false, "replace the configured Google Sheet tab")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportXLSX == "" && !exportSheet {
		return errors.New("nothing to do: pass --xlsx FILE and/or --sheet")
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	todos, err := c.ListTodos(cmd.Context())
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	if exportXLSX != "" {
		f, err := os.Create(exportXLSX)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportXLSX, err)
		}
		if err := export.WriteXLSX(f, todos); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d todos to %s\n", len(todos), exportXLSX)
	}

	if exportSheet {
		cfg, err := config.LoadClient(flagConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		g := cfg.Google
		if g.CredentialsFile == "" || g.SpreadsheetID == "" {
			return errors.New("google.credentials_file and google.spreadsheet_id are required for --sheet")
		}

		exporter, err := export.NewSheetsExporter(cmd.Context(), g.CredentialsFile, g.SpreadsheetID, g.SheetName)
		if err != nil {
			return err
		}
		if err := exporter.Export(cmd.Context(), todos); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d todos to sheet %q\n", len(todos), g.SheetName)
	}
	return nil
}
