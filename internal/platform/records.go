package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"worklink/internal/models"
)

// RecordsClient reads and writes rows in the managed relational store over
// its REST surface. Row-level policy is enforced server-side from the
// bearer token; this client only scopes queries.
type RecordsClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	// token returns the current bearer credential, or "" before sign-in.
	token func() string
}

// NewRecordsClient creates a records client against baseURL.
func NewRecordsClient(baseURL, apiKey string, httpClient *http.Client) *RecordsClient {
	return &RecordsClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		token:   func() string { return "" },
	}
}

// SetTokenSource wires the session's bearer credential into every request.
func (c *RecordsClient) SetTokenSource(token func() string) {
	if token != nil {
		c.token = token
	}
}

// Filter is a single column condition in the remote query syntax,
// e.g. {Column: "user_id", Op: "eq", Value: uid}.
type Filter struct {
	Column string
	Op     string
	Value  string
}

// Eq builds an equality filter.
func Eq(column, value string) Filter { return Filter{Column: column, Op: "eq", Value: value} }

// ILike builds a case-insensitive pattern filter.
func ILike(column, pattern string) Filter {
	return Filter{Column: column, Op: "ilike", Value: pattern}
}

// Or builds a disjunction in the remote query syntax, e.g.
// Or("and(sender_id.eq.a,receiver_id.eq.b),and(sender_id.eq.b,receiver_id.eq.a)").
func Or(expr string) Filter {
	return Filter{Column: "or", Value: "(" + expr + ")"}
}

// Query describes one read against a table.
type Query struct {
	Table     string
	Filters   []Filter
	OrderBy   string
	Ascending bool
	Limit     int
}

func (q Query) values() url.Values {
	v := url.Values{}
	v.Set("select", "*")
	for _, f := range q.Filters {
		if f.Op == "" {
			v.Add(f.Column, f.Value)
			continue
		}
		v.Add(f.Column, f.Op+"."+f.Value)
	}
	if q.OrderBy != "" {
		dir := "desc"
		if q.Ascending {
			dir = "asc"
		}
		v.Set("order", q.OrderBy+"."+dir)
	}
	if q.Limit > 0 {
		v.Set("limit", fmt.Sprintf("%d", q.Limit))
	}
	return v
}

// Select runs the query and decodes the row list into dest (a pointer to a
// slice). Transport and 5xx failures come back transient; policy denials
// and malformed requests are permanent.
func (c *RecordsClient) Select(ctx context.Context, q Query, dest any) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, q.Table, q.values().Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.NewInternalError(err)
	}
	return c.do(req, http.StatusOK, dest)
}

// Insert writes one row and decodes the canonical server row (with
// server-assigned id and timestamps) into dest.
func (c *RecordsClient) Insert(ctx context.Context, table string, row any, dest any) error {
	body, err := json.Marshal(row)
	if err != nil {
		return models.NewInternalError(err)
	}
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return models.NewInternalError(err)
	}
	req.Header.Set("Prefer", "return=representation")
	return c.do(req, http.StatusCreated, dest)
}

// Update patches the row with the given id and decodes the updated row
// into dest when dest is non-nil.
func (c *RecordsClient) Update(ctx context.Context, table, id string, patch any, dest any) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return models.NewInternalError(err)
	}
	endpoint := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", c.baseURL, table, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return models.NewInternalError(err)
	}
	if dest != nil {
		req.Header.Set("Prefer", "return=representation")
	}
	return c.do(req, http.StatusOK, dest)
}

// Delete removes the row with the given id.
func (c *RecordsClient) Delete(ctx context.Context, table, id string) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", c.baseURL, table, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return models.NewInternalError(err)
	}
	return c.do(req, http.StatusNoContent, nil)
}

// DeleteWhere removes every row matching the filters. Used for join-table
// rows that have no id of their own (like memberships).
func (c *RecordsClient) DeleteWhere(ctx context.Context, table string, filters []Filter) error {
	q := Query{Table: table, Filters: filters}
	v := q.values()
	v.Del("select")
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, table, v.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return models.NewInternalError(err)
	}
	return c.do(req, http.StatusNoContent, nil)
}

func (c *RecordsClient) do(req *http.Request, wantStatus int, dest any) error {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.NewTransientError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != wantStatus && resp.StatusCode != http.StatusOK {
		return classifyStatus(resp)
	}
	if dest == nil {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.NewTransientError(err)
	}
	// Single-row writes come back as a one-element array.
	if err := json.Unmarshal(raw, dest); err != nil {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var rows []json.RawMessage
			if arrErr := json.Unmarshal(trimmed, &rows); arrErr == nil && len(rows) > 0 {
				if rowErr := json.Unmarshal(rows[0], dest); rowErr == nil {
					return nil
				}
			}
		}
		return models.NewPermanentError("Malformed response from record store", err)
	}
	return nil
}

func classifyStatus(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("record store returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))

	switch {
	case resp.StatusCode >= 500:
		return models.NewTransientError(err)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return models.NewUnauthorizedError("Not permitted by row-level policy")
	case resp.StatusCode == http.StatusNotFound:
		return &models.AppError{Code: "NOT_FOUND", Kind: models.KindNotFound, Message: "Row not found", Err: err}
	case resp.StatusCode == http.StatusTooManyRequests:
		return models.NewTransientError(err)
	default:
		return models.NewPermanentError("Record store rejected the request", err)
	}
}
