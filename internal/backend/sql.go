package backend

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Friztone/AlertMe/pkg/utils"
)

// SQLStore persists the backend state in Postgres (pgx stdlib driver).
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// Migrate creates the schema if it does not exist yet. The devserver runs
// this at startup; production backends own their migrations elsewhere.
func (s *SQLStore) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	ktp_file      TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS offices (
	id       TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	name     TEXT NOT NULL,
	address  TEXT NOT NULL,
	phone    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY,
	office_id   TEXT NOT NULL REFERENCES offices (id),
	user_id     TEXT NOT NULL REFERENCES users (id),
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	location    TEXT NOT NULL,
	status      TEXT NOT NULL,
	attachment  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_user_idx ON reports (user_id, created_at);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLStore) CreateUser(ctx context.Context, u User) error {
	const q = `
INSERT INTO users (id, name, email, password_hash, ktp_file, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (email) DO NOTHING
`
	res, err := s.db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.KTPFile, u.CreatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEmailTaken
	}
	return nil
}

func (s *SQLStore) UserByEmail(ctx context.Context, email string) (User, error) {
	const q = `
SELECT id, name, email, password_hash, ktp_file, created_at
FROM users
WHERE email = $1
`
	return scanUser(s.db.QueryRowContext(ctx, q, email))
}

func (s *SQLStore) UserByID(ctx context.Context, id string) (User, error) {
	const q = `
SELECT id, name, email, password_hash, ktp_file, created_at
FROM users
WHERE id = $1
`
	return scanUser(s.db.QueryRowContext(ctx, q, id))
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.KTPFile, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *SQLStore) UpdateUserName(ctx context.Context, id, name string) error {
	return s.updateUserColumn(ctx, `UPDATE users SET name = $2 WHERE id = $1`, id, name)
}

func (s *SQLStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	return s.updateUserColumn(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
}

func (s *SQLStore) SetUserKTP(ctx context.Context, id, filename string) error {
	return s.updateUserColumn(ctx, `UPDATE users SET ktp_file = $2 WHERE id = $1`, id, filename)
}

func (s *SQLStore) updateUserColumn(ctx context.Context, q, id, value string) error {
	res, err := s.db.ExecContext(ctx, q, id, value)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListOffices(ctx context.Context, category string) ([]Office, error) {
	const q = `
SELECT id, category, name, address, phone
FROM offices
WHERE category = $1
ORDER BY name
`
	rows, err := s.db.QueryContext(ctx, q, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Office
	for rows.Next() {
		var o Office
		if err := rows.Scan(&o.ID, &o.Category, &o.Name, &o.Address, &o.Phone); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLStore) OfficeByID(ctx context.Context, id string) (Office, error) {
	const q = `
SELECT id, category, name, address, phone
FROM offices
WHERE id = $1
`
	var o Office
	err := s.db.QueryRowContext(ctx, q, id).Scan(&o.ID, &o.Category, &o.Name, &o.Address, &o.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return Office{}, ErrNotFound
	}
	if err != nil {
		return Office{}, err
	}
	return o, nil
}

func (s *SQLStore) CreateOffice(ctx context.Context, o Office) error {
	const q = `
INSERT INTO offices (id, category, name, address, phone)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING
`
	_, err := s.db.ExecContext(ctx, q, o.ID, o.Category, o.Name, o.Address, o.Phone)
	return err
}

func (s *SQLStore) CreateReport(ctx context.Context, r Report) error {
	// Insert inside a transaction so the office existence check and the
	// insert observe the same state.
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM offices WHERE id = $1)`, r.OfficeID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		const q = `
INSERT INTO reports (id, office_id, user_id, title, description, location, status, attachment, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
		_, err := tx.ExecContext(ctx, q,
			r.ID, r.OfficeID, r.UserID, r.Title, r.Description, r.Location, r.Status, r.Attachment, r.CreatedAt)
		return err
	})
}

func (s *SQLStore) ReportsByUser(ctx context.Context, userID string) ([]Report, error) {
	const q = `
SELECT id, office_id, user_id, title, description, location, status, attachment, created_at
FROM reports
WHERE user_id = $1
ORDER BY created_at
`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.OfficeID, &r.UserID, &r.Title, &r.Description,
			&r.Location, &r.Status, &r.Attachment, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) ReportByID(ctx context.Context, id string) (Report, error) {
	const q = `
SELECT id, office_id, user_id, title, description, location, status, attachment, created_at
FROM reports
WHERE id = $1
`
	var r Report
	err := s.db.QueryRowContext(ctx, q, id).Scan(&r.ID, &r.OfficeID, &r.UserID, &r.Title,
		&r.Description, &r.Location, &r.Status, &r.Attachment, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, err
	}
	return r, nil
}

var _ Store = (*SQLStore)(nil)
