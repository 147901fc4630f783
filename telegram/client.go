// Package telegram is a typed client for the Telegram Bot API.
//
// Every method call goes through Client.Do: the request is encoded as JSON,
// or as multipart/form-data when it carries local uploads, POSTed to
// {endpoint}bot{token}/{method}, and the {ok, result} envelope is decoded.
// Send decodes the result into a caller-chosen type.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultEndpoint is the public Bot API server.
const DefaultEndpoint = "https://api.telegram.org/"

const scopeName = "github.com/flubl/telegrambot/telegram"

// tokenPattern matches "<bot id>:<secret>" as issued by @BotFather.
var tokenPattern = regexp.MustCompile(`^\d+:\S+$`)

// ValidateToken checks the shape of a bot token without contacting the server.
func ValidateToken(token string) error {
	if !tokenPattern.MatchString(token) {
		return fmt.Errorf("%w: malformed bot token", ErrConfiguration)
	}
	return nil
}

// httpDo is a package-level variable for testability.
var httpDo = func(client *http.Client, req *http.Request) (*http.Response, error) {
	return client.Do(req)
}

// Client is an HTTP client wrapper for the Telegram Bot API. It is safe for
// concurrent use; calls share the underlying connection pool.
type Client struct {
	token      string
	endpoint   string
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at a different Bot API server, such as a
// self-hosted one. A trailing slash is added if missing.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		c.endpoint = endpoint
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTracerProvider sets the provider used for per-call spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer(scopeName)
	}
}

// NewClient creates a new Telegram Bot API client.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:    token,
		endpoint: DefaultEndpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(scopeName)
	}
	c.baseURL = c.endpoint + "bot" + token + "/"
	return c
}

// Do sends req and returns the raw result of a successful call.
//
// A non-2xx status or "ok": false yields a *RequestError. Transport errors
// are returned wrapped; if ctx is done the context error is returned instead.
func (c *Client) Do(ctx context.Context, req Request) (RawResult, error) {
	raw, _, err := c.do(ctx, req)
	return raw, err
}

// Send sends req and decodes the result into T.
func Send[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T
	raw, status, err := c.do(ctx, req)
	if err != nil {
		return zero, err
	}
	out, err := decodeResult[T](raw)
	if err != nil {
		return zero, &RequestError{Method: req.Method(), StatusCode: status, Err: err}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, req Request) (_ RawResult, _ int, err error) {
	if req == nil {
		return nil, 0, fmt.Errorf("%w: nil request", ErrInvalidArgument)
	}
	method := req.Method()
	if method == "" {
		return nil, 0, fmt.Errorf("%w: request has no method name", ErrInvalidArgument)
	}

	ctx, span := c.tracer.Start(ctx, "telegram."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("telegram.method", method)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := encodeRequest(req)
	if err != nil {
		return nil, 0, err
	}
	defer body.body.Close()
	span.SetAttributes(attribute.Bool("telegram.multipart", body.multipart))

	slog.Debug("telegram API POST", "component", "telegram", "operation", method, "multipart", body.multipart)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, body.body)
	if err != nil {
		return nil, 0, fmt.Errorf("telegram: %s: new request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", body.contentType)

	resp, err := httpDo(c.httpClient, httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, fmt.Errorf("telegram: %s: %w", method, ctxErr)
		}
		return nil, 0, fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, resp.StatusCode, fmt.Errorf("telegram: %s: %w", method, ctxErr)
	}
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("telegram: %s: read body: %w", method, err)
	}

	env, decodeErr := DecodeResponse[RawResult](respBody)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || decodeErr != nil || !env.Ok {
		reqErr := &RequestError{Method: method, StatusCode: resp.StatusCode, Response: env, Err: decodeErr}
		slog.Warn("telegram API call failed",
			"component", "telegram",
			"operation", method,
			"status", resp.StatusCode,
			"error_code", reqErr.ErrorCode(),
			"description", reqErr.Description(),
		)
		return nil, resp.StatusCode, reqErr
	}

	slog.Debug("telegram API call succeeded", "component", "telegram", "operation", method, "status", resp.StatusCode)
	return env.Result, resp.StatusCode, nil
}
