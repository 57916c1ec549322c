package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/simaogato/networth-backend/internal/domain"
)

// DefaultSheetName is the tab rows are appended to when none is configured
const DefaultSheetName = "NetWorth"

// Exporter appends every recorded snapshot as a [date, total] row of a Google spreadsheet
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewExporter creates an exporter authenticated with service account credentials.
// credentialsJSON wins over credentialsFile; both empty falls back to opts alone.
func NewExporter(ctx context.Context, spreadsheetID, sheetName, credentialsJSON, credentialsFile string, opts ...goption.ClientOption) (*Exporter, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}

	switch {
	case credentialsJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(credentialsJSON)))
	case credentialsFile != "":
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read service account file: %w", err)
		}
		opts = append(opts, goption.WithCredentialsJSON(data))
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsScope))

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// Publish implements domain.EventPublisher. Events other than recorded balances are ignored.
func (e *Exporter) Publish(ctx context.Context, event domain.Event) error {
	if event.Type != domain.EventBalancesRecorded || event.Entry == nil {
		return nil
	}

	row := []interface{}{event.Entry.Date.String(), event.Entry.Total.String()}
	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	rng := fmt.Sprintf("%s!A:B", e.sheetName)

	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append snapshot row: %w", err)
	}

	slog.InfoContext(ctx, "snapshot exported to sheet",
		"sheet", e.sheetName,
		"date", event.Entry.Date.String(),
		"total", event.Entry.Total.String())
	return nil
}
