// Package google appends settlements to a Google Sheets spreadsheet using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"tripledger/internal/settlement"
	ports "tripledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const DefaultSheetName = "Settlements"

var _ ports.SettlementWriter = (*Client)(nil)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// batches caches the batch column after the first HasBatch read.
	mu      sync.Mutex
	batches map[string]struct{}
}

// New creates a client for spreadsheetID. Credentials are read from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS; extra options are appended after them.
func New(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	if len(opts) == 0 {
		creds, err := serviceAccountCredentials(ctx)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, sheetName), nil
}

func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func serviceAccountCredentials(ctx context.Context) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendSettlement appends the settlement rows below the last used row of the
// sheet and returns the range the API reports as written.
func (c *Client) AppendSettlement(ctx context.Context, s settlement.Settlement) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if s.Period == "" {
		return "", errors.New("append settlement: missing period")
	}

	rng := fmt.Sprintf("%s!A:H", c.sheetName)
	vr := &gsheet.ValueRange{Values: ports.Rows(s)}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	c.mu.Lock()
	if c.batches != nil {
		c.batches[s.BatchID] = struct{}{}
	}
	c.mu.Unlock()

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}

	slog.InfoContext(ctx, "Settlement appended to sheet",
		"period", s.Period,
		"batch_id", s.BatchID,
		"sheets_ref", ref)
	return ref, nil
}

// HasBatch reports whether the batch column already holds batchID. The
// column is read once per client; later appends through the client keep the
// cached set current.
func (c *Client) HasBatch(ctx context.Context, batchID string) (bool, error) {
	if c.svc == nil {
		return false, errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.batches == nil {
		rng := fmt.Sprintf("%s!B:B", c.sheetName)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
			MajorDimension("COLUMNS").
			Context(ctx).
			Do()
		if err != nil {
			return false, fmt.Errorf("read batch column of %s: %w", c.sheetName, err)
		}
		batches := make(map[string]struct{})
		for _, col := range resp.Values {
			for _, cell := range col {
				if id, ok := cell.(string); ok && id != "" {
					batches[id] = struct{}{}
				}
			}
		}
		c.batches = batches
	}
	_, ok := c.batches[batchID]
	return ok, nil
}
