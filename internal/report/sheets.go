package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetWriter is the subset of the Sheets values API the exporter needs.
type SheetWriter interface {
	ClearRange(ctx context.Context, rng string) error
	UpdateRange(ctx context.Context, rng string, values [][]any) error
}

// SheetsCredentials selects how the exporter authenticates. Service account
// credentials win over an OAuth client and token pair.
type SheetsCredentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientFile    string
	OAuthTokenFile     string
}

// SheetsExporter rewrites one tab of a spreadsheet with a report.
type SheetsExporter struct {
	writer SheetWriter
	// Tab is the sheet name; the user id is appended when PerUser is set.
	Tab     string
	PerUser bool
}

func NewSheetsExporter(w SheetWriter, tab string) *SheetsExporter {
	if tab == "" {
		tab = "Relatório"
	}
	return &SheetsExporter{writer: w, Tab: tab}
}

// TabFor returns the tab that receives a user's report.
func (e *SheetsExporter) TabFor(userID string) string {
	if e.PerUser && userID != "" {
		return e.Tab + " " + userID
	}
	return e.Tab
}

// Export clears the tab and writes header, summary, series and entries.
func (e *SheetsExporter) Export(ctx context.Context, userID string, r *Report) (string, error) {
	tab := e.TabFor(userID)
	if err := e.writer.ClearRange(ctx, tab+"!A:Z"); err != nil {
		return "", fmt.Errorf("clear %s: %w", tab, err)
	}
	values := SheetValues(r)
	rng := fmt.Sprintf("%s!A1", tab)
	if err := e.writer.UpdateRange(ctx, rng, values); err != nil {
		return "", fmt.Errorf("update %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Report exported to sheet",
		"component", "report",
		"user_id", userID,
		"tab", tab,
		"rows", len(values))
	return rng, nil
}

// SheetValues lays the report out as rows. Amounts are written as numbers
// so the sheet can format and sum them.
func SheetValues(r *Report) [][]any {
	var out [][]any
	for _, line := range r.Header() {
		out = append(out, []any{line[0]})
	}
	out = append(out, []any{})
	for _, s := range r.Summary {
		out = append(out, []any{s.Name, s.Amount.Float()})
	}
	out = append(out, []any{})

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	out = append(out, header)
	for _, row := range r.Rows {
		out = append(out, []any{row.Date, row.Account, row.Category, row.Subcategory, row.Description, row.Value.Float()})
	}
	return out
}

// GoogleSheets writes through the Sheets API.
type GoogleSheets struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ SheetWriter = (*GoogleSheets)(nil)

// NewGoogleSheets creates a Sheets API client for spreadsheetID.
func NewGoogleSheets(ctx context.Context, spreadsheetID string, creds SheetsCredentials) (*GoogleSheets, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	opts, err := clientOptions(ctx, creds)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleSheets{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func clientOptions(ctx context.Context, creds SheetsCredentials) ([]goption.ClientOption, error) {
	var credentialsJSON []byte
	var err error
	switch {
	case creds.ServiceAccountJSON != "":
		credentialsJSON = []byte(creds.ServiceAccountJSON)
	case creds.ServiceAccountFile != "":
		credentialsJSON, err = os.ReadFile(creds.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	case creds.OAuthClientFile != "":
		client, err := oauthClient(ctx, creds.OAuthClientFile, creds.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using OAuth client credentials", "component", "report")
		return []goption.ClientOption{goption.WithHTTPClient(client)}, nil
	default:
		return nil, errors.New("missing google credentials (set GOOGLE_CREDENTIALS_JSON, GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	slog.InfoContext(ctx, "Using service account credentials",
		"component", "report",
		"credentials_size", len(credentialsJSON))
	return []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

// OAuthConfig reads an OAuth client file for the spreadsheets scope.
func OAuthConfig(clientFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

func oauthClient(ctx context.Context, clientFile, tokenFile string) (*http.Client, error) {
	cfg, err := OAuthConfig(clientFile)
	if err != nil {
		return nil, err
	}
	if tokenFile == "" {
		tokenFile = DefaultTokenFile
	}
	tok, err := ReadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	return cfg.Client(ctx, tok), nil
}

// DefaultTokenFile is where the OAuth token is kept when no path is set.
const DefaultTokenFile = "token.json"

// ReadToken loads a token saved by SaveToken.
func ReadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (g *GoogleSheets) ClearRange(ctx context.Context, rng string) error {
	_, err := g.svc.Spreadsheets.Values.Clear(g.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (g *GoogleSheets) UpdateRange(ctx context.Context, rng string, values [][]any) error {
	vr := &gsheet.ValueRange{Values: values}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}
