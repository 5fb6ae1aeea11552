package http

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-client/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

func newBackend(t *testing.T, register func(app *fiber.App)) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	register(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String() + "/api"
}

func TestClientGetSendsSessionHeaders(t *testing.T) {
	var gotAuth, gotRequestID string
	base := newBackend(t, func(app *fiber.App) {
		app.Get("/api/tickets", func(c *fiber.Ctx) error {
			gotAuth = c.Get(fiber.HeaderAuthorization)
			gotRequestID = c.Get(fiber.HeaderXRequestID)
			return c.JSON(fiber.Map{"data": []fiber.Map{{"id": 1}}})
		})
	})

	metrics := observability.NewMetrics()
	client := NewClient(Config{BaseURL: base + "/", Token: "tok", Timeout: 5 * time.Second}, nil, metrics)

	body, err := client.Get(context.Background(), "/tickets")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != `{"data":[{"id":1}]}` {
		t.Errorf("body = %s", body)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Errorf("missing X-Request-ID")
	}
	if metrics.Snapshot().Requests["/tickets|GET|200"] != 1 {
		t.Errorf("request not counted: %+v", metrics.Snapshot())
	}
}

func TestClientStatusErrors(t *testing.T) {
	base := newBackend(t, func(app *fiber.App) {
		app.Get("/api/missing", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Ticket not found"})
		})
		app.Get("/api/denied", func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusForbidden)
		})
		app.Post("/api/broken", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"errors": fiber.Map{"status": []string{"The selected status is invalid."}},
			})
		})
		app.Get("/api/down", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusBadGateway).SendString("<html>bad gateway</html>")
		})
	})
	client := NewClient(Config{BaseURL: base}, nil, nil)
	ctx := context.Background()

	_, err := client.Get(ctx, "missing")
	if !apperrors.Is(err, apperrors.CodeNotFound) || apperrors.ToDomainError(err).Message != "Ticket not found" {
		t.Errorf("404 = %v", err)
	}

	_, err = client.Get(ctx, "denied")
	if !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Errorf("403 = %v", err)
	}

	_, err = client.Post(ctx, "broken", map[string]string{"status": "X"})
	de := apperrors.ToDomainError(err)
	if de.Code != apperrors.CodeNetworkFailure || de.Message != "The selected status is invalid." {
		t.Errorf("422 = %+v", de)
	}

	_, err = client.Get(ctx, "down")
	de = apperrors.ToDomainError(err)
	if de.Code != apperrors.CodeNetworkFailure || de.Message != apperrors.GenericNetworkMessage || de.HTTPStatus != fiber.StatusBadGateway {
		t.Errorf("502 = %+v", de)
	}
}

func TestClientPostJSON(t *testing.T) {
	var gotType, gotBody string
	base := newBackend(t, func(app *fiber.App) {
		app.Post("/api/tickets/9/status", func(c *fiber.Ctx) error {
			gotType = c.Get(fiber.HeaderContentType)
			gotBody = string(c.Body())
			return c.JSON(fiber.Map{"data": fiber.Map{"id": 9, "status": "IN_REVIEW"}})
		})
	})
	client := NewClient(Config{BaseURL: base}, nil, nil)

	if _, err := client.Post(context.Background(), "tickets/9/status", map[string]string{"status": "IN_REVIEW"}); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if gotType != fiber.MIMEApplicationJSON {
		t.Errorf("content type = %q", gotType)
	}
	if gotBody != `{"status":"IN_REVIEW"}` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestClientPostMultipart(t *testing.T) {
	var gotMessage, gotFileName, gotFile string
	base := newBackend(t, func(app *fiber.App) {
		app.Post("/api/tickets/9/messages", func(c *fiber.Ctx) error {
			gotMessage = c.FormValue("message")
			fh, err := c.FormFile("attachments[]")
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
			}
			gotFileName = fh.Filename
			f, err := fh.Open()
			if err != nil {
				return err
			}
			defer f.Close()
			data, _ := io.ReadAll(f)
			gotFile = string(data)
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"id": 77}})
		})
	})
	client := NewClient(Config{BaseURL: base}, nil, nil)

	_, err := client.PostMultipart(context.Background(), "tickets/9/messages", Multipart{
		Fields: map[string]string{"message": "hello"},
		Files:  []File{{Field: "attachments[]", Name: "log.txt", Content: []byte("trace")}},
	})
	if err != nil {
		t.Fatalf("PostMultipart() error = %v", err)
	}
	if gotMessage != "hello" || gotFileName != "log.txt" || gotFile != "trace" {
		t.Errorf("received message=%q file=%q content=%q", gotMessage, gotFileName, gotFile)
	}
}

func TestClientDownload(t *testing.T) {
	var gotAuth string
	base := newBackend(t, func(app *fiber.App) {
		app.Get("/storage/tickets/a.pdf", func(c *fiber.Ctx) error {
			gotAuth = c.Get(fiber.HeaderAuthorization)
			c.Set(fiber.HeaderContentType, "application/pdf")
			return c.Send([]byte("%PDF-1.4"))
		})
	})
	client := NewClient(Config{BaseURL: base, Token: "tok"}, nil, nil)
	storageURL := base[:len(base)-len("/api")] + "/storage/tickets/a.pdf"

	blob, err := client.Download(context.Background(), storageURL, true)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if blob.ContentType != "application/pdf" || string(blob.Data) != "%PDF-1.4" {
		t.Errorf("blob = %+v", blob)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}

	if _, err := client.Download(context.Background(), storageURL, false); err != nil {
		t.Fatalf("unauthenticated Download() error = %v", err)
	}
	if gotAuth != "" {
		t.Errorf("unauthenticated download sent %q", gotAuth)
	}
}

func TestClientCanceledContext(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1/api"}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "tickets")
	if !apperrors.Is(err, apperrors.CodeNetworkFailure) {
		t.Fatalf("canceled Get() = %v, want network failure", err)
	}
}

func TestClientUnreachableBackend(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1/api", Timeout: time.Second}, nil, nil)

	_, err := client.Get(context.Background(), "tickets")
	de := apperrors.ToDomainError(err)
	if de.Code != apperrors.CodeNetworkFailure || de.Message != apperrors.GenericNetworkMessage {
		t.Fatalf("unreachable Get() = %+v", de)
	}
}
