package backend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the default store: good enough for local development and
// for exercising the client end to end in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]User
	offices map[string]Office
	reports map[string]Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   map[string]User{},
		offices: map[string]Office{},
		reports: map[string]Report{},
	}
}

// SeedOffices loads a small directory across all four categories so a fresh
// devserver is immediately usable.
func (s *MemoryStore) SeedOffices() {
	seed := []Office{
		{Category: "pemadamkebakaran", Name: "Pos Pemadam Kota Utara", Address: "Jl. Merdeka 12", Phone: "0431-110011"},
		{Category: "pemadamkebakaran", Name: "Pos Pemadam Kota Selatan", Address: "Jl. Sudirman 4"},
		{Category: "polisi", Name: "Polsek Kota Tengah", Address: "Jl. Ahmad Yani 88", Phone: "0431-110"},
		{Category: "rumahsakit", Name: "RSUD Harapan", Address: "Jl. Kesehatan 1", Phone: "0431-118"},
		{Category: "bpbd", Name: "BPBD Kota", Address: "Jl. Siaga 7", Phone: "0431-129"},
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range seed {
		o.ID = uuid.NewString()
		s.offices[o.ID] = o
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) UserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) UpdateUserName(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Name = name
	s.users[id] = u
	return nil
}

func (s *MemoryStore) UpdateUserPassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.users[id] = u
	return nil
}

func (s *MemoryStore) SetUserKTP(_ context.Context, id, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.KTPFile = filename
	s.users[id] = u
	return nil
}

func (s *MemoryStore) ListOffices(_ context.Context, category string) ([]Office, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Office
	for _, o := range s.offices {
		if o.Category == category {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) OfficeByID(_ context.Context, id string) (Office, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offices[id]
	if !ok {
		return Office{}, ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) CreateOffice(_ context.Context, o Office) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offices[o.ID] = o
	return nil
}

func (s *MemoryStore) CreateReport(_ context.Context, r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = r
	return nil
}

func (s *MemoryStore) ReportsByUser(_ context.Context, userID string) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Report
	for _, r := range s.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ReportByID(_ context.Context, id string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	return r, nil
}

var _ Store = (*MemoryStore)(nil)

// NewReport stamps a fresh report record.
func NewReport(officeID, userID, title, description, location, attachment string, now time.Time) Report {
	return Report{
		ID:          uuid.NewString(),
		OfficeID:    officeID,
		UserID:      userID,
		Title:       title,
		Description: description,
		Location:    location,
		Status:      StatusPending,
		Attachment:  attachment,
		CreatedAt:   now,
	}
}
