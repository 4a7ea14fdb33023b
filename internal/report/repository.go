package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/Friztone/AlertMe/internal/api"
	"github.com/Friztone/AlertMe/internal/session"
	"github.com/Friztone/AlertMe/internal/token"
)

// Repository implements the domain operations on top of the shared API
// client. Every method returns either a value or a classified *api.Error;
// calls that require a session fail with unauthenticated before any network
// round-trip.
type Repository struct {
	api      *api.Client
	sessions session.Store
	log      *slog.Logger
	onLogout []func(context.Context) error
}

func NewRepository(client *api.Client, sessions session.Store, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.Default()
	}
	return &Repository{api: client, sessions: sessions, log: log}
}

// OnLogout registers a hook run after the session slot is cleared. The
// social-login collaborator uses this to drop its cached web credentials.
func (r *Repository) OnLogout(hook func(context.Context) error) {
	r.onLogout = append(r.onLogout, hook)
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token and persists it. Session
// state is untouched on failure.
func (r *Repository) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", api.Validation("email and password are required")
	}

	var out tokenResponse
	err := r.api.PostJSON(ctx, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, false, &out)
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", api.Malformed(errors.New("login response missing token"))
	}

	if err := r.sessions.Set(ctx, out.Token); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	return out.Token, nil
}

// Register creates an account and persists the returned token, logging the
// new user in. The password/confirmation match is checked locally before
// anything is sent.
func (r *Repository) Register(ctx context.Context, name, email, password, confirm string) (string, error) {
	if name == "" || email == "" || password == "" || confirm == "" {
		return "", api.Validation("name, email and password are required")
	}
	if password != confirm {
		return "", api.Validation("passwords do not match")
	}

	var out tokenResponse
	err := r.api.PostJSON(ctx, "/register", map[string]string{
		"name":         name,
		"email":        email,
		"password":     password,
		"confPassword": confirm,
	}, false, &out)
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", api.Malformed(errors.New("register response missing token"))
	}

	if err := r.sessions.Set(ctx, out.Token); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	return out.Token, nil
}

// Logout clears the session slot and runs any registered hooks. Hooks run
// even if earlier ones fail; errors are joined.
func (r *Repository) Logout(ctx context.Context) error {
	if err := r.sessions.Clear(ctx); err != nil {
		return err
	}
	var errs []error
	for _, hook := range r.onLogout {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Profile fetches the authenticated user's own record.
func (r *Repository) Profile(ctx context.Context) (Profile, error) {
	var out Profile
	if err := r.api.GetJSON(ctx, "/me", &out); err != nil {
		return Profile{}, err
	}
	return out, nil
}

// UpdateName renames the current user. The target user id is always derived
// from the session token, never accepted from the caller.
func (r *Repository) UpdateName(ctx context.Context, newName string) error {
	if newName == "" {
		return api.Validation("name is required")
	}
	uid, err := r.currentUserID(ctx)
	if err != nil {
		return err
	}
	return r.api.PutJSON(ctx, "/user/"+url.PathEscape(uid)+"/name",
		map[string]string{"name": newName}, nil)
}

// UpdatePassword changes the current user's password. The new/confirmation
// match is a local precondition.
func (r *Repository) UpdatePassword(ctx context.Context, oldPassword, newPassword, confirm string) error {
	if oldPassword == "" || newPassword == "" || confirm == "" {
		return api.Validation("old, new and confirmation passwords are required")
	}
	if newPassword != confirm {
		return api.Validation("new password and confirmation do not match")
	}
	uid, err := r.currentUserID(ctx)
	if err != nil {
		return err
	}
	return r.api.PutJSON(ctx, "/user/"+url.PathEscape(uid)+"/password", map[string]string{
		"oldPassword":  oldPassword,
		"newPassword":  newPassword,
		"confPassword": confirm,
	}, nil)
}

// UploadIDPhoto submits the identity-verification photo.
func (r *Repository) UploadIDPhoto(ctx context.Context, photo Attachment) error {
	if photo.Reader == nil || photo.Filename == "" {
		return api.Validation("a named photo is required")
	}
	return r.api.PostMultipart(ctx, "/user/ktp", nil, &api.FilePart{
		Field:       "ktp",
		Filename:    photo.Filename,
		ContentType: photo.ContentType,
		Reader:      photo.Reader,
	}, nil)
}

// ListOffices fetches the directory for one service category. Elements that
// fail mapping are skipped and logged rather than discarding the whole list.
func (r *Repository) ListOffices(ctx context.Context, category Category) ([]Office, error) {
	if !category.Valid() {
		return nil, api.Validation(fmt.Sprintf("unknown office category %q", category))
	}
	var raw []json.RawMessage
	if err := r.api.GetJSON(ctx, "/"+string(category), &raw); err != nil {
		return nil, err
	}

	offices := make([]Office, 0, len(raw))
	for i, element := range raw {
		o, err := MapOffice(element)
		if err != nil {
			r.log.Warn("skipping malformed office in directory", "category", category, "index", i, "err", err)
			continue
		}
		offices = append(offices, o)
	}
	return offices, nil
}

// SubmitReport files an incident report against one office. The attachment
// is optional; when present it is streamed, so the submission scales to
// multi-megabyte photos. A submission abandoned mid-flight may still have
// reached the server: no response means indeterminate, not "did not happen".
func (r *Repository) SubmitReport(ctx context.Context, officeID, title, description, location string, attachment *Attachment) error {
	if officeID == "" || title == "" || description == "" || location == "" {
		return api.Validation("office, title, description and location are required")
	}

	fields := map[string]string{
		"kantorUuid":      officeID,
		"name":            title,
		"deskripsi":       description,
		"lokasi_kejadian": location,
	}
	var file *api.FilePart
	if attachment != nil {
		if attachment.Reader == nil || attachment.Filename == "" {
			return api.Validation("attachment must have a name and content")
		}
		file = &api.FilePart{
			Field:       "laporan",
			Filename:    attachment.Filename,
			ContentType: attachment.ContentType,
			Reader:      attachment.Reader,
		}
	}
	return r.api.PostMultipart(ctx, "/laporan", fields, file, nil)
}

// ListReportsForCurrentUser fetches the report history of the user the
// session token belongs to. Elements that fail mapping are skipped and
// logged rather than discarding the whole list.
func (r *Repository) ListReportsForCurrentUser(ctx context.Context) ([]Report, error) {
	uid, err := r.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := r.api.GetJSON(ctx, "/laporan?user_uuid="+url.QueryEscape(uid), &raw); err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(raw))
	for i, element := range raw {
		rp, err := MapReport(element)
		if err != nil {
			r.log.Warn("skipping malformed report in history", "index", i, "err", err)
			continue
		}
		reports = append(reports, rp)
	}
	return reports, nil
}

// ReportDetail fetches one report by id.
func (r *Repository) ReportDetail(ctx context.Context, reportID string) (Report, error) {
	if reportID == "" {
		return Report{}, api.Validation("report id is required")
	}
	var raw json.RawMessage
	if err := r.api.GetJSON(ctx, "/laporan/"+url.PathEscape(reportID), &raw); err != nil {
		return Report{}, err
	}
	return MapReport(raw)
}

// currentUserID derives the user id from the stored token. No token, or a
// token whose claims cannot be read, means the call is unauthenticated and
// nothing goes on the wire.
func (r *Repository) currentUserID(ctx context.Context) (string, error) {
	tok, err := r.sessions.Get(ctx)
	if err != nil {
		return "", api.Unauthenticated(err)
	}
	uid, ok := token.DecodeUserID(tok)
	if !ok {
		return "", api.Unauthenticated(errors.New("token carries no user id"))
	}
	return uid, nil
}
