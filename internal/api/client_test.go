package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/Friztone/AlertMe/internal/session"
)

func newTestClient(t *testing.T, baseURL string, store session.Store) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, Timeout: 2 * time.Second}, store, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func authedStore(t *testing.T) session.Store {
	t.Helper()
	store := session.NewMemStore()
	if err := store.Set(context.Background(), "tok"); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

func TestClient_SuccessDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "tok" {
			t.Errorf("expected raw token header, got %q", got)
		}
		if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer") {
			t.Errorf("header must not carry a Bearer prefix")
		}
		w.Write([]byte(`{"name":"Ani"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, authedStore(t))
	var out struct {
		Name string `json:"name"`
	}
	if err := c.GetJSON(context.Background(), "/me", &out); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Name != "Ani" {
		t.Fatalf("expected Ani, got %q", out.Name)
	}
}

func TestClient_NonexistentSessionFailsWithoutNetworkCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, session.NewMemStore())
	err := c.GetJSON(context.Background(), "/me", &struct{}{})
	if !IsKind(err, KindUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestClient_HTTPErrorCarriesStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"msg":"report not found"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, authedStore(t))
	err := c.GetJSON(context.Background(), "/laporan/abc", &struct{}{})
	if !IsKind(err, KindHTTP) {
		t.Fatalf("expected http_error, got %v", err)
	}
	if StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", StatusOf(err))
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Message != "report not found" {
		t.Fatalf("expected server message, got %v", err)
	}
}

func TestClient_MalformedBodyOnSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{broken`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, authedStore(t))
	err := c.GetJSON(context.Background(), "/me", &struct{}{})
	if !IsKind(err, KindMalformed) {
		t.Fatalf("expected malformed_response, got %v", err)
	}
}

func TestClient_EmptyBodyWhenJSONExpected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, authedStore(t))
	err := c.GetJSON(context.Background(), "/me", &struct{}{})
	if !IsKind(err, KindMalformed) {
		t.Fatalf("expected malformed_response, got %v", err)
	}
}

func TestClient_ConnectionRefusedIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	c := newTestClient(t, srv.URL, authedStore(t))
	err := c.GetJSON(context.Background(), "/me", &struct{}{})
	if !IsKind(err, KindTransport) {
		t.Fatalf("expected transport, got %v", err)
	}
}

func TestClient_TimeoutIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	store := authedStore(t)
	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, store, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.GetJSON(context.Background(), "/me", &struct{}{}); !IsKind(err, KindTransport) {
		t.Fatalf("expected transport on timeout, got %v", err)
	}
}

func TestClient_MultipartStreamsFieldsAndFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if got := r.FormValue("kantorUuid"); got != "office-1" {
			t.Errorf("expected kantorUuid office-1, got %q", got)
		}
		file, hdr, err := r.FormFile("laporan")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		if !bytes.Equal(content, []byte("photo-bytes")) {
			t.Errorf("unexpected file content %q", content)
		}
		if hdr.Filename != "kebakaran.jpg" {
			t.Errorf("unexpected filename %q", hdr.Filename)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"msg":"ok"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, authedStore(t))
	err := c.PostMultipart(context.Background(), "/laporan",
		map[string]string{"kantorUuid": "office-1"},
		&FilePart{
			Field:       "laporan",
			Filename:    "kebakaran.jpg",
			ContentType: "image/jpeg",
			Reader:      strings.NewReader("photo-bytes"),
		}, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestClient_MultipartWithoutSessionReleasesPipeWriter(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	c := newTestClient(t, srv.URL, session.NewMemStore())
	before := runtime.NumGoroutine()

	for i := 0; i < 10; i++ {
		err := c.PostMultipart(context.Background(), "/laporan",
			map[string]string{"name": "t"},
			&FilePart{
				Field:    "laporan",
				Filename: "a.jpg",
				Reader:   strings.NewReader("x"),
			}, nil)
		if !IsKind(err, KindUnauthenticated) {
			t.Fatalf("expected unauthenticated, got %v", err)
		}
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}

	// The body-writer goroutines must unblock once the read half closes.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("body writer goroutines leaked: before=%d after=%d", before, runtime.NumGoroutine())
}

func TestClient_RejectsBadBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: ""}, session.NewMemStore(), nil); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
	if _, err := New(Config{BaseURL: "not a url"}, session.NewMemStore(), nil); err == nil {
		t.Fatalf("expected error for junk base URL")
	}
}
