// Package httpapi implements the remote.Source contract over standard REST
// JSON endpoints (list/get/create/update/delete under a single resource path).
package httpapi

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

	"cachecore/internal/remote"
	"cachecore/pkg/domain"
)

// Doer is the subset of http.Client the collaborator needs; tests inject
// their own implementation.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one REST resource collection, e.g. /api/users.
type Client[E domain.Entity, P domain.Patch[E]] struct {
	base     string
	resource string
	doer     Doer
	header   http.Header
}

// Option adjusts client construction.
type Option func(*clientOptions)

type clientOptions struct {
	doer   Doer
	header http.Header
}

// WithDoer overrides the underlying HTTP client.
func WithDoer(d Doer) Option {
	return func(o *clientOptions) { o.doer = d }
}

// WithHeader sets a header on every request (e.g. an Authorization token).
func WithHeader(key, value string) Option {
	return func(o *clientOptions) { o.header.Set(key, value) }
}

// New constructs a client for the resource collection rooted at
// base+"/"+resource.
func New[E domain.Entity, P domain.Patch[E]](base, resource string, opts ...Option) *Client[E, P] {
	options := clientOptions{doer: http.DefaultClient, header: http.Header{}}
	for _, opt := range opts {
		opt(&options)
	}
	return &Client[E, P]{
		base:     strings.TrimRight(base, "/"),
		resource: strings.Trim(resource, "/"),
		doer:     options.doer,
		header:   options.header,
	}
}

var _ remote.Source[domain.User, domain.UserPatch] = (*Client[domain.User, domain.UserPatch])(nil)

// List fetches a page of entities.
func (c *Client[E, P]) List(ctx context.Context, params remote.Params) ([]E, error) {
	query := url.Values{}
	if params.Offset > 0 {
		query.Set("offset", strconv.Itoa(params.Offset))
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	for field, value := range params.Filters {
		query.Set(field, value)
	}
	target := c.collectionURL()
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	var out []E
	if err := c.roundTrip(ctx, http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a single entity by id.
func (c *Client[E, P]) Get(ctx context.Context, id string) (E, error) {
	var out E
	if err := c.roundTrip(ctx, http.MethodGet, c.entityURL(id), nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Create posts a new entity and returns the authoritative server value.
func (c *Client[E, P]) Create(ctx context.Context, payload E) (E, error) {
	var out E
	if err := c.roundTrip(ctx, http.MethodPost, c.collectionURL(), payload, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Update patches an entity and returns the authoritative server value.
func (c *Client[E, P]) Update(ctx context.Context, id string, patch P) (E, error) {
	var out E
	if err := c.roundTrip(ctx, http.MethodPatch, c.entityURL(id), patch, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Delete removes an entity.
func (c *Client[E, P]) Delete(ctx context.Context, id string) error {
	return c.roundTrip(ctx, http.MethodDelete, c.entityURL(id), nil, nil)
}

func (c *Client[E, P]) collectionURL() string {
	return c.base + "/" + c.resource
}

func (c *Client[E, P]) entityURL(id string) string {
	return c.collectionURL() + "/" + url.PathEscape(id)
}

func (c *Client[E, P]) roundTrip(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return remote.NewStatusError(resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
