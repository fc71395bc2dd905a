package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTransport covers unreachable upstream, timeouts and non-200 statuses.
	ErrTransport = errors.New("catalog: upstream transport failure")
	// ErrMalformed means the upstream answered with an unexpected document shape.
	ErrMalformed = errors.New("catalog: malformed upstream response")
)

const (
	productsPath   = "/api-products.json"
	categoriesPath = "/api-categories.json"

	defaultFetchTimeout = 10 * time.Second
	maxBodyBytes        = 16 << 20
)

// RawProduct is a product as published by the CMS. Field types are loose:
// the CMS emits ids and prices either as strings or numbers.
type RawProduct struct {
	ID           looseString  `json:"id"`
	Name         looseString  `json:"name"`
	Price        looseString  `json:"price"`
	Description  looseString  `json:"description"`
	Weight       looseString  `json:"weight"`
	Availability looseString  `json:"availability"`
	Images       looseStrings `json:"images"`
	ParentID     looseString  `json:"parent_id"`
	Sort         looseInt     `json:"sort"`
}

// RawCategory is a category as published by the CMS.
type RawCategory struct {
	ID       looseString `json:"id"`
	Name     looseString `json:"name"`
	ParentID looseString `json:"parent_id"`
	Image    looseString `json:"image"`
	Sort     looseInt    `json:"sort"`
}

// Client reads the CMS API. It keeps no state between calls.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient builds a client for baseURL; timeout bounds every call (0 -> 10s).
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    httpClient,
	}
}

// FetchProducts downloads the flat product list. Items without an id are dropped.
func (c *Client) FetchProducts(ctx context.Context) ([]RawProduct, error) {
	items, err := c.getList(ctx, productsPath, "products")
	if err != nil {
		return nil, err
	}
	out := make([]RawProduct, 0, len(items))
	for _, item := range items {
		var p RawProduct
		if err := json.Unmarshal(item, &p); err != nil || p.ID == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// FetchCategories downloads the category list. Items without an id are dropped.
func (c *Client) FetchCategories(ctx context.Context) ([]RawCategory, error) {
	items, err := c.getList(ctx, categoriesPath, "categories")
	if err != nil {
		return nil, err
	}
	out := make([]RawCategory, 0, len(items))
	for _, item := range items {
		var cat RawCategory
		if err := json.Unmarshal(item, &cat); err != nil || cat.ID == "" {
			continue
		}
		out = append(out, cat)
	}
	return out, nil
}

// getList fetches path and returns the elements of the top-level array field.
func (c *Client) getList(ctx context.Context, path, field string) ([]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransport, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: %s: unexpected status %d", ErrTransport, path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrTransport, path, err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	raw, ok := envelope[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s: field %q missing", ErrMalformed, path, field)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, fmt.Errorf("%w: %s: field %q is not a list", ErrMalformed, path, field)
	}
	return items, nil
}

// looseString accepts a JSON string, number or null.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = looseString(n.String())
	return nil
}

// looseStrings accepts a list of strings, a single string or null.
type looseStrings []string

func (s *looseStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	if b[0] != '[' {
		var one looseString
		if err := one.UnmarshalJSON(b); err != nil {
			return err
		}
		if one == "" {
			*s = nil
		} else {
			*s = looseStrings{string(one)}
		}
		return nil
	}
	var many []looseString
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	out := make(looseStrings, 0, len(many))
	for _, v := range many {
		if v != "" {
			out = append(out, string(v))
		}
	}
	*s = out
	return nil
}

// looseInt accepts a JSON number or numeric string; anything else decodes as 0.
type looseInt int

func (i *looseInt) UnmarshalJSON(b []byte) error {
	var s looseString
	if err := s.UnmarshalJSON(b); err != nil {
		*i = 0
		return nil
	}
	if s == "" {
		*i = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		*i = 0
		return nil
	}
	*i = looseInt(f)
	return nil
}
