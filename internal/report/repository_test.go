package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Friztone/AlertMe/internal/api"
	"github.com/Friztone/AlertMe/internal/session"
)

func testToken(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{"uuid": userID}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func testRepository(t *testing.T, baseURL string, store session.Store) *Repository {
	t.Helper()
	client, err := api.New(api.Config{BaseURL: baseURL, Timeout: 2 * time.Second}, store, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return NewRepository(client, store, nil)
}

func TestLogin_StoresReturnedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not send a token")
		}
		w.Write([]byte(`{"token":"x.y.z"}`))
	}))
	defer srv.Close()

	store := session.NewMemStore()
	repo := testRepository(t, srv.URL, store)

	tok, err := repo.Login(context.Background(), "a@b.com", "pw")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if tok != "x.y.z" {
		t.Fatalf("expected x.y.z, got %q", tok)
	}
	stored, err := store.Get(context.Background())
	if err != nil || stored != "x.y.z" {
		t.Fatalf("expected stored token x.y.z, got %q err=%v", stored, err)
	}
}

func TestLogin_FailureLeavesSessionUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"msg":"wrong email or password"}`))
	}))
	defer srv.Close()

	store := session.NewMemStore()
	repo := testRepository(t, srv.URL, store)

	if _, err := repo.Login(context.Background(), "a@b.com", "bad"); !api.IsKind(err, api.KindHTTP) {
		t.Fatalf("expected http_error, got %v", err)
	}
	if _, err := store.Get(context.Background()); err != session.ErrNoSession {
		t.Fatalf("expected session to stay empty, got %v", err)
	}
}

func TestRegister_PasswordMismatchSkipsNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	repo := testRepository(t, srv.URL, session.NewMemStore())
	_, err := repo.Register(context.Background(), "Ani", "a@b.com", "p1", "p2")
	if !api.IsKind(err, api.KindValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestUpdatePassword_MismatchSkipsNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	store := session.NewMemStore()
	store.Set(context.Background(), testToken(t, "user-1"))
	repo := testRepository(t, srv.URL, store)

	err := repo.UpdatePassword(context.Background(), "old", "p1", "p2")
	if !api.IsKind(err, api.KindValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestUpdateName_DerivesUserIDFromToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/user/user-7/name" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"msg":"name updated"}`))
	}))
	defer srv.Close()

	store := session.NewMemStore()
	store.Set(context.Background(), testToken(t, "user-7"))
	repo := testRepository(t, srv.URL, store)

	if err := repo.UpdateName(context.Background(), "Budi"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestListReports_NoSessionSkipsNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	repo := testRepository(t, srv.URL, session.NewMemStore())
	if _, err := repo.ListReportsForCurrentUser(context.Background()); !api.IsKind(err, api.KindUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestListReports_SkipsMalformedElements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("user_uuid"); got != "user-1" {
			t.Errorf("expected user_uuid filter, got %q", got)
		}
		w.Write([]byte(`[
			{"uuid":"rep-1","name":"a","deskripsi":"b","lokasi_kejadian":"c","status":"pending","kantor":{"name":"k","alamat":"l"}},
			{"uuid":"rep-2"},
			{"uuid":"rep-3","name":"x","deskripsi":"y","lokasi_kejadian":"z","status":"done","kantor":{"name":"k","alamat":"l"}}
		]`))
	}))
	defer srv.Close()

	store := session.NewMemStore()
	store.Set(context.Background(), testToken(t, "user-1"))
	repo := testRepository(t, srv.URL, store)

	reports, err := repo.ListReportsForCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 mapped reports, got %d", len(reports))
	}
	if reports[0].ID != "rep-1" || reports[1].ID != "rep-3" {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestReportDetail_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"msg":"report not found"}`))
	}))
	defer srv.Close()

	store := session.NewMemStore()
	store.Set(context.Background(), testToken(t, "user-1"))
	repo := testRepository(t, srv.URL, store)

	_, err := repo.ReportDetail(context.Background(), "abc")
	if !api.IsKind(err, api.KindHTTP) {
		t.Fatalf("expected http_error, got %v", err)
	}
	if api.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", api.StatusOf(err))
	}
}

func TestSubmitReport_NetworkDropIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // simulate the connection dropping

	store := session.NewMemStore()
	store.Set(context.Background(), testToken(t, "user-1"))
	repo := testRepository(t, srv.URL, store)

	att := &Attachment{
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		Reader:      strings.NewReader("bytes"),
	}
	err := repo.SubmitReport(context.Background(), "office-1", "title", "desc", "loc", att)
	if !api.IsKind(err, api.KindTransport) {
		t.Fatalf("expected transport, got %v", err)
	}
}

func TestListOffices_SkipsMalformedElements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pemadamkebakaran" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"uuid":"off-1","name":"Pos Utara","alamat":"Jl. Merdeka 12","telfon":"0431-110011"},
			"junk-element",
			{"uuid":"off-2","name":"Pos Selatan","alamat":"Jl. Sudirman 4"}
		]`))
	}))
	defer srv.Close()

	store := session.NewMemStore()
	store.Set(context.Background(), testToken(t, "user-1"))
	repo := testRepository(t, srv.URL, store)

	offices, err := repo.ListOffices(context.Background(), CategoryFire)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(offices) != 2 {
		t.Fatalf("expected 2 mapped offices, got %d", len(offices))
	}
	if offices[0].ID != "off-1" || offices[1].ID != "off-2" {
		t.Fatalf("unexpected offices: %+v", offices)
	}
}

func TestListOffices_RejectsUnknownCategory(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	store := session.NewMemStore()
	store.Set(context.Background(), testToken(t, "user-1"))
	repo := testRepository(t, srv.URL, store)

	if _, err := repo.ListOffices(context.Background(), Category("ambulans")); !api.IsKind(err, api.KindValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestLogout_ClearsSessionAndRunsHooks(t *testing.T) {
	store := session.NewMemStore()
	store.Set(context.Background(), "tok")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	repo := testRepository(t, srv.URL, store)

	hookRan := false
	repo.OnLogout(func(context.Context) error {
		hookRan = true
		return nil
	})

	if err := repo.Logout(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !hookRan {
		t.Fatalf("expected logout hook to run")
	}
	if _, err := store.Get(context.Background()); err != session.ErrNoSession {
		t.Fatalf("expected cleared session, got %v", err)
	}
}
