package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Friztone/AlertMe/internal/session"
)

const defaultTimeout = 15 * time.Second

// Config controls the shared client. One instance is constructed at startup
// and passed by reference; handlers must not build ad-hoc clients per call.
type Config struct {
	// BaseURL is the single backend origin, e.g. "http://10.0.2.2:4000".
	BaseURL string

	// Timeout bounds every request end to end. Zero means defaultTimeout;
	// an unbounded client is not an acceptable contract.
	Timeout time.Duration
}

// Client issues requests against the report-management backend.
//
// Protocol notes:
// - Authenticated requests carry the raw token in the Authorization header,
//   with no "Bearer " prefix. That is what the backend expects today.
// - There is no automatic retry. Every failure is classified (errors.go)
//   and surfaced; the caller owns user-facing messaging.
type Client struct {
	baseURL  string
	http     *http.Client
	sessions session.Store
	breaker  *gobreaker.CircuitBreaker
	log      *slog.Logger
}

func New(cfg Config, sessions session.Store, log *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("api: base URL must be http(s), got %q", cfg.BaseURL)
	}
	if sessions == nil {
		return nil, errors.New("api: session store is required")
	}
	if log == nil {
		log = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// Only transport failures feed the breaker; a server that answers,
	// even with 5xx, is reachable and should keep being asked.
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "alertme-api",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("api breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:  base,
		http:     &http.Client{Timeout: timeout},
		sessions: sessions,
		breaker:  breaker,
		log:      log,
	}, nil
}

// FilePart is one named binary field of a multipart request. The reader is
// streamed into the request body, never buffered whole.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Reader      io.Reader
}

// GetJSON issues an authenticated GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", true, out)
}

// PostJSON issues a POST with a JSON body. authed selects whether the
// session token is attached (login and register run without one).
func (c *Client) PostJSON(ctx context.Context, path string, body any, authed bool, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return Malformed(fmt.Errorf("encode request body: %w", err))
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(raw), "application/json", authed, out)
}

// PutJSON issues an authenticated PUT with a JSON body.
func (c *Client) PutJSON(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return Malformed(fmt.Errorf("encode request body: %w", err))
	}
	return c.do(ctx, http.MethodPut, path, bytes.NewReader(raw), "application/json", true, out)
}

// PostMultipart issues an authenticated multipart/form-data POST with the
// given text fields and at most one binary part. The body is produced
// through a pipe so multi-megabyte attachments never sit in memory whole.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, file *FilePart, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()

		for name, value := range fields {
			if err = mw.WriteField(name, value); err != nil {
				return
			}
		}
		if file != nil {
			hdr := make(textproto.MIMEHeader)
			hdr.Set("Content-Disposition",
				fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
			ct := file.ContentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			hdr.Set("Content-Type", ct)

			var part io.Writer
			if part, err = mw.CreatePart(hdr); err != nil {
				return
			}
			if _, err = io.Copy(part, file.Reader); err != nil {
				return
			}
		}
		err = mw.Close()
	}()

	return c.do(ctx, http.MethodPost, path, pr, mw.FormDataContentType(), true, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, authed bool, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, method, path, body, contentType, authed, out)
	observe(method, KindOf(err), time.Since(start).Seconds())
	if err != nil {
		c.log.Debug("api request failed", "method", method, "path", path, "kind", KindOf(err), "err", err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body io.Reader, contentType string, authed bool, out any) error {
	// Multipart bodies arrive as the read half of a pipe with a writer
	// goroutine behind it. Any return that does not hand the body to
	// http.Client.Do must close it, or that goroutine blocks forever.
	closeBody := func() {
		if bc, ok := body.(io.Closer); ok {
			bc.Close()
		}
	}

	var tok string
	if authed {
		var err error
		tok, err = c.sessions.Get(ctx)
		if err != nil {
			// Absent token and an unreadable store both mean "no usable
			// session"; either way nothing is sent.
			closeBody()
			return Unauthenticated(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		closeBody()
		return Transport(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		// Raw token, no "Bearer " prefix. The backend matches on the bare
		// value; adding the conventional prefix breaks authentication.
		req.Header.Set("Authorization", tok)
	}

	res, err := c.breaker.Execute(func() (any, error) {
		return c.http.Do(req)
	})
	if err != nil {
		// Covers an open breaker rejecting before the request is sent;
		// when Do did run it already closed the body, and closing the
		// pipe again is a no-op.
		closeBody()
		return Transport(err)
	}
	resp := res.(*http.Response)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transport(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return HTTPError(resp.StatusCode, serverMessage(raw, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if len(raw) == 0 {
		return Malformed(errors.New("empty response body"))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return Malformed(fmt.Errorf("decode response body: %w", err))
	}
	return nil
}

// serverMessage pulls a human-readable message out of an error payload. The
// backend is not consistent about the field name.
func serverMessage(raw []byte, status int) string {
	var payload struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		switch {
		case payload.Msg != "":
			return payload.Msg
		case payload.Message != "":
			return payload.Message
		case payload.Error != "":
			return payload.Error
		}
	}
	return http.StatusText(status)
}
