// Package syncclient - HTTP JSON клиент трех логических эндпоинтов
// (вкладки, ячейки, картинки). Маршруты зависят от развертывания, поэтому
// клиент получает полные адреса эндпоинтов и не знает их устройства.
//
// Клиент не повторяет запросы и ничего не кэширует: это делает пакет grid.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.alis.build/alog"
)

const maxErrorBody = 4 << 10

// Endpoints - адреса трех эндпоинтов.
type Endpoints struct {
	Tabs   string
	Cells  string
	Images string
}

// Client выполняет запросы к удаленному API.
type Client struct {
	endpoints Endpoints
	http      *http.Client
	token     string
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет http.Client (например, на клиент с офлайн-кэшем).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken добавляет заголовок Authorization: Bearer.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout задает таймаут одного запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New создает клиент.
func New(endpoints Endpoints, opts ...Option) *Client {
	c := &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON выполняет GET и раскладывает тело в out.
func (c *Client) getJSON(ctx context.Context, op, endpoint string, query url.Values, out any) error {
	return c.do(ctx, op, http.MethodGet, endpoint, query, nil, out)
}

// sendJSON выполняет запрос с JSON-телом.
func (c *Client) sendJSON(ctx context.Context, op, method, endpoint string, query url.Values, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: ошибка сериализации запроса: %w", op, err)
	}
	return c.do(ctx, op, method, endpoint, query, payload, out)
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, query url.Values, payload []byte, out any) error {
	target, err := withQuery(endpoint, query)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	alog.Debugf(ctx, "syncclient: %s %s %s", op, method, target)
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("неверный JSON ответа: %w", err)}
	}
	return nil
}

func withQuery(endpoint string, query url.Values) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("адрес эндпоинта не задан")
	}
	if len(query) == 0 {
		return endpoint, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// errorMessage достает поле error из тела ответа, если оно есть.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
