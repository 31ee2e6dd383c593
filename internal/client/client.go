// Package client talks to the catalog HTTP API and turns failures into
// messages fit for an end user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout = 5 * time.Second
	maxErrorBody   = 64 << 10

	msgUnreachable = "Não foi possível conectar com o servidor. Verifique se a API está rodando."
	msgNotFound    = "Recurso não encontrado"
)

type Product struct {
	ID          int64   `json:"id"`
	Description string  `json:"descricao"`
	Price       float64 `json:"preco"`
}

type ProductInput struct {
	Description string  `json:"descricao"`
	Price       float64 `json:"preco"`
}

// APIError is returned for every failed call. Status is 0 when the server
// could not be reached at all.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch e.Status {
	case 0:
		return msgUnreachable
	case http.StatusNotFound:
		return msgNotFound
	default:
		return fmt.Sprintf("Erro %d: %s", e.Status, e.Message)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) List(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/produtos", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := c.do(ctx, http.MethodGet, productPath(id), nil, &p)
	return p, err
}

func (c *Client) Create(ctx context.Context, in ProductInput) (Product, error) {
	var p Product
	err := c.do(ctx, http.MethodPost, "/produtos", in, &p)
	return p, err
}

func (c *Client) Update(ctx context.Context, id int64, in ProductInput) (Product, error) {
	var p Product
	err := c.do(ctx, http.MethodPut, productPath(id), in, &p)
	return p, err
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, productPath(id), nil, nil)
}

func productPath(id int64) string {
	return "/produtos/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &APIError{Status: 0, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage prefers the server's {"error": ...} text and falls back to the
// status text.
func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return e.Error
	}
	return http.StatusText(resp.StatusCode)
}
