package backend

import (
	"context"
	"errors"
	"time"
)

// Office categories served by the directory endpoints. Each value is also
// the collection path.
var Categories = []string{"pemadamkebakaran", "polisi", "rumahsakit", "bpbd"}

var (
	ErrNotFound   = errors.New("backend: not found")
	ErrEmailTaken = errors.New("backend: email already registered")
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	KTPFile      string
	CreatedAt    time.Time
}

type Office struct {
	ID       string
	Category string
	Name     string
	Address  string
	Phone    string
}

type Report struct {
	ID          string
	OfficeID    string
	UserID      string
	Title       string
	Description string
	Location    string
	Status      string
	Attachment  string
	CreatedAt   time.Time
}

// Report lifecycle starts here; transitions are backend-internal.
const StatusPending = "pending"

// Store abstracts persistence for the reference backend. Two
// implementations: MemoryStore (default) and SQLStore (Postgres).
type Store interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	UpdateUserName(ctx context.Context, id, name string) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	SetUserKTP(ctx context.Context, id, filename string) error

	ListOffices(ctx context.Context, category string) ([]Office, error)
	OfficeByID(ctx context.Context, id string) (Office, error)
	CreateOffice(ctx context.Context, o Office) error

	CreateReport(ctx context.Context, r Report) error
	ReportsByUser(ctx context.Context, userID string) ([]Report, error)
	ReportByID(ctx context.Context, id string) (Report, error)
}
