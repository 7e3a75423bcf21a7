// Package google is a records.Source backed by a Google Spreadsheet: one
// sheet of transactions with a header row and one sheet of categories.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/records"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ records.Source = (*Client)(nil)

// Config locates the spreadsheet and the credentials used to reach it:
// either a service account or an OAuth client with a saved user token.
type Config struct {
	SpreadsheetID     string
	TransactionsSheet string
	CategoriesSheet   string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string

	// Used when no service account is set. The token file is the one
	// written by oauth-init.
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string
}

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	categoriesSheet   string

	// writes resolve row numbers before changing them
	mu sync.Mutex
}

// New creates a client authenticated with the configured service account,
// falling back to an OAuth user token.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if !hasServiceAccount(cfg) && strings.TrimSpace(cfg.OAuthTokenFile) != "" {
		ts, err := oauthTokenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Creating Google Sheets service with OAuth user token",
			"token_file", cfg.OAuthTokenFile)
		return NewWithOptions(ctx, cfg, goption.WithTokenSource(ts))
	}

	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(creds),
		"scope", gsheet.SpreadsheetsScope)
	return NewWithOptions(ctx, cfg,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions creates a client from explicit API options, for example a
// custom endpoint and HTTP client.
func NewWithOptions(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	c := &Client{
		svc:               svc,
		spreadsheetID:     strings.TrimSpace(cfg.SpreadsheetID),
		transactionsSheet: strings.TrimSpace(cfg.TransactionsSheet),
		categoriesSheet:   strings.TrimSpace(cfg.CategoriesSheet),
	}
	if c.transactionsSheet == "" {
		c.transactionsSheet = "Transactions"
	}
	if c.categoriesSheet == "" {
		c.categoriesSheet = "Categories"
	}
	return c, nil
}

func hasServiceAccount(cfg Config) bool {
	return strings.TrimSpace(cfg.CredentialsJSON) != "" || strings.TrimSpace(cfg.CredentialsFile) != ""
}

// oauthTokenSource builds a refreshing token source from the OAuth client
// and the saved token.
func oauthTokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	var client []byte
	switch {
	case strings.TrimSpace(cfg.OAuthClientJSON) != "":
		client = []byte(cfg.OAuthClientJSON)
	case strings.TrimSpace(cfg.OAuthClientFile) != "":
		b, err := os.ReadFile(cfg.OAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		client = b
	default:
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}

	oc, err := goauth.ConfigFromJSON(client, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}

	b, err := os.ReadFile(cfg.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return oc.TokenSource(ctx, &tok), nil
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) getValues(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// Transactions reads every transaction row in sheet order. Unreadable rows
// are logged and left out.
func (c *Client) Transactions(ctx context.Context) ([]core.Transaction, error) {
	values, err := c.getValues(ctx, c.transactionsSheet+"!A:G")
	if err != nil {
		return nil, err
	}
	txs, skipped := parseTransactions(values)
	for _, s := range skipped {
		slog.WarnContext(ctx, "Skipping unreadable transaction row", "sheet", c.transactionsSheet, "detail", s)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	values, err := c.getValues(ctx, c.categoriesSheet+"!A2:B")
	if err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	return parseCategories(values), nil
}

// CreateTransaction validates in, resolves its category against the
// categories sheet and appends a new row.
func (c *Client) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	cats, err := c.ListCategories(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	ref := strings.TrimSpace(in.Category)
	cat, ok := core.ResolveCategory(cats, ref)
	if !ok {
		return core.Transaction{}, &records.StoreError{
			Op:     "create transaction",
			Detail: fmt.Sprintf("Unknown category %q", ref),
			Err:    core.ErrUnknownCategory,
		}
	}
	tx := core.Transaction{
		ID:           uuid.NewString(),
		Type:         in.Type,
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Amount:       in.Amount,
		Date:         in.Date,
		Description:  strings.TrimSpace(in.Description),
	}
	if err := c.AppendTransaction(ctx, tx); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// AppendTransaction writes tx as a new row unless a row with its ID is
// already present, so replaying the same transaction is harmless.
func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.getValues(ctx, c.transactionsSheet+"!A:A")
	if err != nil {
		return err
	}
	if findRow(ids, tx.ID) >= 0 {
		slog.InfoContext(ctx, "Transaction already in sheet", "id", tx.ID, "sheet", c.transactionsSheet)
		return nil
	}

	rows := [][]interface{}{}
	if len(ids) == 0 {
		header := make([]interface{}, len(transactionHeaders))
		for i, h := range transactionHeaders {
			header[i] = h
		}
		rows = append(rows, header)
	}
	rows = append(rows, transactionRow(tx))

	rng := c.transactionsSheet + "!A:G"
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append to sheet %s: %w", c.transactionsSheet, err)
	}
	slog.InfoContext(ctx, "Transaction appended to sheet",
		"id", tx.ID,
		"sheet", c.transactionsSheet,
		"amount_cents", tx.Amount.Cents)
	return nil
}

// DeleteTransaction removes the row holding id.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.getValues(ctx, c.transactionsSheet+"!A:A")
	if err != nil {
		return err
	}
	row := findRow(ids, id)
	if row < 0 {
		return fmt.Errorf("delete transaction %s: %w", id, core.ErrNotFound)
	}
	sheetID, err := c.sheetID(ctx, c.transactionsSheet)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row),
					EndIndex:   int64(row + 1),
					// the first sheet has id 0, which omitempty would drop
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", row+1, c.transactionsSheet, err)
	}
	slog.InfoContext(ctx, "Transaction deleted from sheet", "id", id, "row", row+1)
	return nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && strings.EqualFold(s.Properties.Title, title) {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", title)
}
