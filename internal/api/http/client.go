package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/normalize"
	"github.com/spec-kit/helpdesk-client/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// Config configures the backend transport.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Token     string
	UserAgent string
}

// File is one file part of a multipart body.
type File struct {
	Field   string
	Name    string
	Content []byte
}

// Multipart is a multipart/form-data request body.
type Multipart struct {
	Fields map[string]string
	Files  []File
}

// Blob is a downloaded resource.
type Blob struct {
	ContentType string
	Data        []byte
}

// Client issues requests against the helpdesk backend through the fiber
// client agent. Every non-2xx response is returned as a DomainError.
type Client struct {
	baseURL   string
	timeout   time.Duration
	token     string
	userAgent string
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewClient builds a transport for cfg.
func NewClient(cfg Config, logger *zap.Logger, metrics *observability.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "helpdesk-client"
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		timeout:   cfg.Timeout,
		token:     cfg.Token,
		userAgent: userAgent,
		logger:    logger,
		metrics:   metrics,
	}
}

// BaseURL returns the configured API base without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get fetches path relative to the API base.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	res, err := c.do(ctx, nethttp.MethodGet, c.url(path), path, true, nil)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Post sends body as JSON to path relative to the API base. A nil body sends
// an empty request.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	res, err := c.do(ctx, nethttp.MethodPost, c.url(path), path, true, func(agent *fiber.Agent) {
		if body != nil {
			agent.JSON(body)
		}
	})
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// PostMultipart sends form as multipart/form-data.
func (c *Client) PostMultipart(ctx context.Context, path string, form Multipart) ([]byte, error) {
	res, err := c.do(ctx, nethttp.MethodPost, c.url(path), path, true, func(agent *fiber.Agent) {
		args := fiber.AcquireArgs()
		defer fiber.ReleaseArgs(args)
		for key, value := range form.Fields {
			args.Set(key, value)
		}
		files := make([]*fiber.FormFile, 0, len(form.Files))
		for _, f := range form.Files {
			files = append(files, &fiber.FormFile{Fieldname: f.Field, Name: f.Name, Content: f.Content})
		}
		agent.FileData(files...)
		agent.MultipartForm(args)
	})
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Download fetches an absolute URL. authenticated controls whether the
// session bearer token is attached.
func (c *Client) Download(ctx context.Context, rawURL string, authenticated bool) (Blob, error) {
	return c.do(ctx, nethttp.MethodGet, rawURL, "download", authenticated, func(agent *fiber.Agent) {
		agent.Set(fiber.HeaderAccept, "*/*")
	})
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

type outcome struct {
	status int
	blob   Blob
	errs   []error
}

func (c *Client) do(ctx context.Context, method, target, label string, authenticated bool, prepare func(*fiber.Agent)) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return Blob{}, apperrors.NewNetworkFailure(0, "", err)
	}

	requestID := uuid.NewString()
	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(target)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.Set(fiber.HeaderXRequestID, requestID)
	agent.Set(fiber.HeaderUserAgent, c.userAgent)
	if authenticated && c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if timeout := c.effectiveTimeout(ctx); timeout > 0 {
		agent.Timeout(timeout)
	}
	if prepare != nil {
		prepare(agent)
	}
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		c.metrics.RecordError(label, method, apperrors.CodeNetworkFailure)
		return Blob{}, apperrors.NewNetworkFailure(0, "", err)
	}

	resp := fiber.AcquireResponse()
	agent.SetResponse(resp)

	started := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer fiber.ReleaseResponse(resp)
		status, _, errs := agent.Bytes()
		done <- outcome{
			status: status,
			blob: Blob{
				ContentType: string(resp.Header.ContentType()),
				Data:        append([]byte(nil), resp.Body()...),
			},
			errs: errs,
		}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		c.metrics.RecordError(label, method, apperrors.CodeNetworkFailure)
		return Blob{}, apperrors.NewNetworkFailure(0, "", ctx.Err())
	case out = <-done:
	}

	elapsed := time.Since(started)
	log := c.logger.With(
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", label),
	)

	if len(out.errs) > 0 {
		err := errors.Join(out.errs...)
		c.metrics.RecordError(label, method, apperrors.CodeNetworkFailure)
		log.Debug("backend request failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return Blob{}, apperrors.NewNetworkFailure(0, "", err)
	}

	c.metrics.RecordRequest(label, method, out.status, elapsed)
	log.Debug("backend request", zap.Int("status", out.status), zap.Duration("elapsed", elapsed))

	if out.status < 200 || out.status >= 300 {
		err := statusError(out.status, out.blob.Data)
		c.metrics.RecordError(label, method, apperrors.CodeOf(err))
		return Blob{}, err
	}
	return out.blob, nil
}

func (c *Client) effectiveTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

// statusError maps a non-2xx response onto the error taxonomy, preferring
// the backend's own message.
func statusError(status int, body []byte) error {
	msg := normalize.ErrorMessage(body)
	switch status {
	case nethttp.StatusNotFound:
		if msg == "" {
			msg = "resource not found"
		}
		return apperrors.NewDomainError(apperrors.CodeNotFound, msg, status, nil)
	case nethttp.StatusUnauthorized:
		if msg == "" {
			msg = "session expired, please sign in again"
		}
		return apperrors.NewUnauthorized(msg)
	case nethttp.StatusForbidden:
		if msg == "" {
			msg = "you are not allowed to do this"
		}
		return apperrors.NewForbidden(msg)
	}
	return apperrors.NewNetworkFailure(status, msg, nil)
}
