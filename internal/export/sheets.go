package export

import (
	"context"
	"fmt"
	"os"

	"todolist/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsExporter mirrors the todo list into one tab of a spreadsheet.
type SheetsExporter struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsExporter authenticates with a service-account key file.
func NewSheetsExporter(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*SheetsExporter, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	return NewSheetsExporterWithOptions(ctx, spreadsheetID, sheetName, option.WithHTTPClient(jwt.Client(ctx)))
}

func NewSheetsExporterWithOptions(ctx context.Context, spreadsheetID, sheetName string, opts ...option.ClientOption) (*SheetsExporter, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if sheetName == "" {
		sheetName = xlsxSheet
	}

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return &SheetsExporter{service: srv, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// Export replaces the tab's contents with a header row and one row per todo.
func (s *SheetsExporter) Export(ctx context.Context, todos []models.Todo) error {
	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.sheetName+"!A:B", &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	values := make([][]any, 0, len(todos)+1)
	values = append(values, []any{"ID", "Title"})
	for _, t := range todos {
		values = append(values, []any{t.ID, t.Title})
	}

	rangeData := fmt.Sprintf("%s!A1:B%d", s.sheetName, len(values))
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update sheet: %w", err)
	}
	return nil
}
