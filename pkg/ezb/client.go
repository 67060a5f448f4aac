package ezb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	endpointAccounts       = "accounts/list.json"
	endpointCategories     = "transaction/categories/list.json"
	endpointAddCategory    = "transaction/categories/add.json"
	endpointTransactions   = "transactions/list.json"
	endpointAddTransaction = "transactions/add.json"
)

const (
	DefaultPageSize = 50
	DefaultTimeout  = 30 * time.Second

	maxErrorBody = 200
)

type Options struct {
	BaseURL  string
	Token    string
	Timezone string
	Timeout  time.Duration
	PageSize int
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client talks to the ezbookkeeping JSON API. Calls are serial; a single
// http.Client is reused for the whole run.
type Client struct {
	baseURL  string
	token    string
	timezone string
	location *time.Location
	pageSize int
	http     *http.Client
	logger   *log.Logger
}

func New(opts Options, logger *log.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if opts.Timezone == "" {
		opts.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", opts.Timezone, err)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.Token,
		timezone: opts.Timezone,
		location: loc,
		pageSize: opts.PageSize,
		http:     httpClient,
		logger:   logger,
	}, nil
}

// Location is the timezone sent with every request.
func (c *Client) Location() *time.Location {
	return c.location
}

func (c *Client) PageSize() int {
	return c.pageSize
}

// Health succeeds when the account list answers with success=true.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, endpointAccounts, nil, nil); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (c *Client) ListAccounts(ctx context.Context) ([]*Account, error) {
	var accounts []*Account
	if err := c.do(ctx, http.MethodGet, endpointAccounts, nil, &accounts); err != nil {
		return nil, err
	}
	c.logger.Debug("accounts loaded", "count", len(accounts))
	return accounts, nil
}

// ListCategories returns the category tree keyed by category type.
func (c *Client) ListCategories(ctx context.Context) (map[CategoryType][]*Category, error) {
	var raw map[string][]*Category
	if err := c.do(ctx, http.MethodGet, endpointCategories, nil, &raw); err != nil {
		return nil, err
	}

	tree := make(map[CategoryType][]*Category, len(raw))
	for key, cats := range raw {
		n, err := strconv.Atoi(key)
		if err != nil {
			return nil, &APIError{Endpoint: endpointCategories, Message: fmt.Sprintf("unexpected category type %q", key)}
		}
		tree[CategoryType(n)] = cats
	}
	return tree, nil
}

func (c *Client) CreateCategory(ctx context.Context, payload *NewCategory) (*Category, error) {
	var created Category
	if err := c.do(ctx, http.MethodPost, endpointAddCategory, payload, &created); err != nil {
		return nil, err
	}
	c.logger.Debug("category created", "id", created.ID, "name", payload.Name, "type", payload.Type, "parent", payload.ParentID)
	return &created, nil
}

// ListTransactionsPage fetches one page. Pages start at 1.
func (c *Client) ListTransactionsPage(ctx context.Context, page, count int) ([]*Transaction, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("count", strconv.Itoa(count))

	var result transactionPage
	if err := c.do(ctx, http.MethodGet, endpointTransactions+"?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// ListAllTransactions pages until a short or empty page is returned.
func (c *Client) ListAllTransactions(ctx context.Context) ([]*Transaction, error) {
	var all []*Transaction
	for page := 1; ; page++ {
		items, err := c.ListTransactionsPage(ctx, page, c.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions page %d: %w", page, err)
		}
		all = append(all, items...)
		if len(items) < c.pageSize {
			break
		}
	}
	c.logger.Debug("transactions loaded", "count", len(all))
	return all, nil
}

func (c *Client) CreateTransaction(ctx context.Context, payload *NewTransaction) (*Transaction, error) {
	var created Transaction
	if err := c.do(ctx, http.MethodPost, endpointAddTransaction, payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+endpoint, reader)
	if err != nil {
		return &APIError{Endpoint: endpoint, Message: "failed to build request", Err: err}
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Endpoint: endpoint, Message: fmt.Sprintf("%s request failed", method), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Endpoint: endpoint, Message: "failed to read response", Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && env.ErrorMessage != "" {
			msg = env.ErrorMessage
		}
		return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: msg, Body: truncate(data)}
	}
	if decodeErr != nil {
		return &APIError{Endpoint: endpoint, Message: "invalid JSON response", Body: truncate(data), Err: decodeErr}
	}
	if !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: env.ErrorMessage, Body: truncate(data), Err: ErrUnsuccessful}
	}

	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: "unexpected result shape", Body: truncate(data), Err: err}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Timezone-Name", c.timezone)
	req.Header.Set("X-Timezone-Offset", strconv.Itoa(OffsetMinutes(time.Now().In(c.location))))
}

// OffsetMinutes is the UTC offset of t's zone at t, in minutes.
func OffsetMinutes(t time.Time) int {
	_, offset := t.Zone()
	return offset / 60
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}
