package rowsource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ms-registration/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
)

const DefaultSheetsBaseURL = "https://sheets.googleapis.com"

// SheetsClient talks to the Google Sheets v4 values API with a bearer token.
type SheetsClient struct {
	baseURL       string
	spreadsheetID string
	sheetName     string
	lastColumn    string
	tokens        oauth2.TokenSource
	client        *http.Client
	logger        *logger.Logger
	newBackOff    func() backoff.BackOff
}

type SheetsOptions struct {
	SpreadsheetID string
	SheetName     string
	// LastColumn bounds the append range, e.g. "P" for A:P.
	LastColumn  string
	BaseURL     string
	TokenSource oauth2.TokenSource
	HTTPClient  *http.Client
	Logger      *logger.Logger
	// BackOff overrides the retry policy for reads.
	BackOff func() backoff.BackOff
}

func NewSheetsClient(opts SheetsOptions) (*SheetsClient, error) {
	if opts.SpreadsheetID == "" || opts.TokenSource == nil {
		return nil, ErrNotConfigured
	}
	if opts.SheetName == "" {
		opts.SheetName = "Sheet1"
	}
	if opts.LastColumn == "" {
		opts.LastColumn = "Z"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultSheetsBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.BackOff == nil {
		opts.BackOff = defaultReadBackOff
	}
	return &SheetsClient{
		baseURL:       opts.BaseURL,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     opts.SheetName,
		lastColumn:    opts.LastColumn,
		tokens:        opts.TokenSource,
		client:        opts.HTTPClient,
		logger:        opts.Logger,
		newBackOff:    opts.BackOff,
	}, nil
}

func defaultReadBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 4 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5
	return b
}

type valueRange struct {
	Range  string  `json:"range,omitempty"`
	Values [][]any `json:"values"`
}

type appendResponse struct {
	SpreadsheetID string `json:"spreadsheetId"`
	TableRange    string `json:"tableRange"`
	Updates       struct {
		UpdatedRange string `json:"updatedRange"`
		UpdatedRows  int    `json:"updatedRows"`
	} `json:"updates"`
}

func (c *SheetsClient) rangeURL(a1 string) string {
	return fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(c.sheetName+"!"+a1))
}

// ReadColumn fetches column:column. Network errors, 429 and 5xx are retried.
func (c *SheetsClient) ReadColumn(ctx context.Context, column string) ([]string, error) {
	endpoint := c.rangeURL(column + ":" + column)

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		b, err := c.do(req)
		if err != nil {
			var remote *RemoteError
			if errors.As(err, &remote) && !retryable(remote.StatusCode) {
				return backoff.Permanent(err)
			}
			c.logger.Warn("SHEETS", fmt.Sprintf("Read of column %s failed, retrying: %v", column, err))
			return err
		}
		body = b
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return nil, err
	}

	var vr valueRange
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, &RemoteError{Op: "read column " + column, Err: fmt.Errorf("decode response: %w", err)}
	}

	cells := make([]string, len(vr.Values))
	for i, row := range vr.Values {
		if len(row) > 0 && row[0] != nil {
			cells[i] = fmt.Sprint(row[0])
		}
	}
	c.logger.LogSheets("READ", fmt.Sprintf("column %s returned %d rows", column, len(cells)))
	return cells, nil
}

// AppendRow is sent exactly once; a retried append could write the row twice.
func (c *SheetsClient) AppendRow(ctx context.Context, values []any) (AppendResult, error) {
	endpoint := c.rangeURL("A:"+c.lastColumn) + ":append?valueInputOption=USER_ENTERED"

	payload, err := json.Marshal(valueRange{Values: [][]any{values}})
	if err != nil {
		return AppendResult{}, fmt.Errorf("encode row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return AppendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return AppendResult{}, err
	}

	var resp appendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		// the row was written; only the position is unknown
		c.logger.Warn("SHEETS", fmt.Sprintf("Append succeeded but response could not be decoded: %v", err))
		return AppendResult{}, nil
	}

	result := AppendResult{Range: resp.Updates.UpdatedRange, Row: RowFromRange(resp.Updates.UpdatedRange)}
	c.logger.LogSheets("APPEND", fmt.Sprintf("row written at %q", result.Range))
	return result, nil
}

func (c *SheetsClient) do(req *http.Request) ([]byte, error) {
	op := req.Method + " " + c.sheetName

	tok, err := c.tokens.Token()
	if err != nil {
		return nil, &RemoteError{Op: op, Err: fmt.Errorf("get access token: %w", err)}
	}
	tok.SetAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: op, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("SHEETS", fmt.Sprintf("Error closing response body: %v", cerr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("google sheets API error: %s", bytes.TrimSpace(body))}
	}
	return body, nil
}

func retryable(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}
