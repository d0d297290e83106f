package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aulacode/tareas-api/internal/observability"
)

const defaultTimeout = 15 * time.Second

// Record is one loosely typed row in a record-store collection. Fields carry
// whatever the store returns; consumers must defend against absent keys.
type Record struct {
	ID     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

// ListOptions narrows and orders a collection query.
type ListOptions struct {
	Formula    string
	SortField  string
	SortDesc   bool
	MaxRecords int
}

// Config holds connection settings for the hosted record store.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the hosted record store over HTTP. Collections hold
// {id, fields} documents; filtering goes through filterByFormula. The store
// offers no transactions and no unique constraints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     zerolog.Logger
}

// New constructs a record-store client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("record store base url must be provided")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("record store api key must be provided")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger.With().Str("component", "recordstore").Logger(),
	}, nil
}

type recordsEnvelope struct {
	Records []Record `json:"records"`
}

type createEnvelope struct {
	Records []struct {
		Fields map[string]interface{} `json:"fields"`
	} `json:"records"`
}

type patchEnvelope struct {
	Fields map[string]interface{} `json:"fields"`
}

// List queries a collection, optionally filtered and sorted.
func (c *Client) List(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	u, err := url.Parse(c.tableURL(table))
	if err != nil {
		return nil, fmt.Errorf("invalid table url: %w", err)
	}

	q := u.Query()
	if opts.Formula != "" {
		q.Set("filterByFormula", opts.Formula)
	}
	if opts.SortField != "" {
		q.Set("sort[0][field]", opts.SortField)
		direction := "asc"
		if opts.SortDesc {
			direction = "desc"
		}
		q.Set("sort[0][direction]", direction)
	}
	if opts.MaxRecords > 0 {
		q.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
	}
	u.RawQuery = q.Encode()

	var envelope recordsEnvelope
	if err := c.do(ctx, http.MethodGet, table, u.String(), nil, &envelope); err != nil {
		return nil, err
	}

	return envelope.Records, nil
}

// Create inserts one record. The store accepts an array of field-sets; the
// first created record is returned.
func (c *Client) Create(ctx context.Context, table string, fields map[string]interface{}) (Record, error) {
	body := createEnvelope{}
	body.Records = append(body.Records, struct {
		Fields map[string]interface{} `json:"fields"`
	}{Fields: fields})

	var envelope recordsEnvelope
	if err := c.do(ctx, http.MethodPost, table, c.tableURL(table), body, &envelope); err != nil {
		return Record{}, err
	}

	if len(envelope.Records) == 0 {
		return Record{}, &APIError{StatusCode: http.StatusBadGateway, Message: "store returned no created record"}
	}

	return envelope.Records[0], nil
}

// Get fetches a single record by id.
func (c *Client) Get(ctx context.Context, table, id string) (Record, error) {
	var record Record
	if err := c.do(ctx, http.MethodGet, table, c.recordURL(table, id), nil, &record); err != nil {
		return Record{}, err
	}

	return record, nil
}

// Update patches only the supplied fields of an existing record.
func (c *Client) Update(ctx context.Context, table, id string, fields map[string]interface{}) (Record, error) {
	var record Record
	if err := c.do(ctx, http.MethodPatch, table, c.recordURL(table, id), patchEnvelope{Fields: fields}, &record); err != nil {
		return Record{}, err
	}

	return record, nil
}

// Delete removes a record by id.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.do(ctx, http.MethodDelete, table, c.recordURL(table, id), nil, nil)
}

func (c *Client) tableURL(table string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(table))
}

func (c *Client) recordURL(table, id string) string {
	return fmt.Sprintf("%s/%s", c.tableURL(table), url.PathEscape(id))
}

func (c *Client) do(ctx context.Context, method, table, requestURL string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	observability.RecordStoreLatency().WithLabelValues(table, method).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.RecordStoreRequests().WithLabelValues(table, method, "network_error").Inc()
		return &APIError{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := decodeAPIError(resp)
		observability.RecordStoreRequests().WithLabelValues(table, method, "error").Inc()
		c.logger.Warn().
			Str("table", table).
			Str("method", method).
			Int("status", apiErr.StatusCode).
			Str("error_type", apiErr.Type).
			Msg("record store request failed")
		return apiErr
	}

	observability.RecordStoreRequests().WithLabelValues(table, method, "ok").Inc()

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode store response: %w", err)
	}

	return nil
}
