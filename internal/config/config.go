package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// All configuration comes from env (or an env-file loaded by the process
// runner). No business logic should depend on raw environment variables.

// Session backends for the client process.
const (
	SessionBackendFile  = "file"
	SessionBackendRedis = "redis"
)

// Client configures the alertme CLI / client core.
type Client struct {
	Env string

	// BaseURL is the backend origin every request targets.
	BaseURL string

	// RequestTimeout bounds each API call. Defaults applied in Validate().
	RequestTimeout time.Duration

	// SessionBackend selects where the token slot lives: file (default) or
	// redis for shared deployments.
	SessionBackend string
	SessionPath    string
	RedisAddr      string
}

// Server configures the reference backend (cmd/devserver).
type Server struct {
	Env  string
	Port int

	// JWTSecret signs issued tokens.
	JWTSecret string
	TokenTTL  time.Duration

	// DatabaseDSN is optional; empty means the in-memory store.
	DatabaseDSN string

	// RedisAddr is optional; set it to enable login rate limiting.
	RedisAddr       string
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// UploadDir receives attachment and KTP files.
	UploadDir string
}

func LoadClient() (Client, error) {
	c := Client{
		Env:            strings.TrimSpace(os.Getenv("APP_ENV")),
		BaseURL:        strings.TrimSpace(os.Getenv("ALERTME_API_URL")),
		RequestTimeout: envDuration("ALERTME_TIMEOUT"),
		SessionBackend: strings.TrimSpace(os.Getenv("ALERTME_SESSION_BACKEND")),
		SessionPath:    strings.TrimSpace(os.Getenv("ALERTME_SESSION_PATH")),
		RedisAddr:      strings.TrimSpace(os.Getenv("ALERTME_REDIS_ADDR")),
	}
	if err := c.Validate(); err != nil {
		return Client{}, err
	}
	return c, nil
}

func (c *Client) Validate() error {
	var errs []error

	if c.Env == "" {
		c.Env = "local"
	} else if !isValidEnv(c.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.Env))
	}

	if c.BaseURL == "" {
		errs = append(errs, errors.New("ALERTME_API_URL is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("ALERTME_API_URL must be an http(s) URL, got %q", c.BaseURL))
	}

	if c.RequestTimeout <= 0 {
		// Bounded by contract: the client must never hang indefinitely.
		c.RequestTimeout = 15 * time.Second
	}

	switch c.SessionBackend {
	case "":
		c.SessionBackend = SessionBackendFile
	case SessionBackendFile:
	case SessionBackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("ALERTME_REDIS_ADDR is required when ALERTME_SESSION_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("ALERTME_SESSION_BACKEND must be file or redis, got %q", c.SessionBackend))
	}

	return joinErrors(errs)
}

func LoadServer() (Server, error) {
	s := Server{
		Env:             strings.TrimSpace(os.Getenv("APP_ENV")),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TokenTTL:        envDuration("TOKEN_TTL"),
		DatabaseDSN:     strings.TrimSpace(os.Getenv("DATABASE_DSN")),
		RedisAddr:       strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		LoginRateWindow: envDuration("LOGIN_RATE_WINDOW"),
		UploadDir:       strings.TrimSpace(os.Getenv("UPLOAD_DIR")),
	}

	var errs []error
	{
		n, err := mustInt("APP_PORT")
		if err != nil {
			errs = append(errs, err)
		}
		s.Port = n
	}
	if v := strings.TrimSpace(os.Getenv("LOGIN_RATE_LIMIT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOGIN_RATE_LIMIT must be an integer, got %q", v))
		}
		s.LoginRateLimit = n
	}

	if err := joinErrors(errs); err != nil {
		return Server{}, err
	}
	if err := s.Validate(); err != nil {
		return Server{}, err
	}
	return s, nil
}

func (s *Server) Validate() error {
	var errs []error

	if s.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(s.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", s.Env))
	}
	if s.Port <= 0 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", s.Port))
	}
	if s.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if s.TokenTTL <= 0 {
		s.TokenTTL = 24 * time.Hour
	}
	if s.LoginRateLimit < 0 {
		errs = append(errs, fmt.Errorf("LOGIN_RATE_LIMIT must be >= 0, got %d", s.LoginRateLimit))
	}
	if s.LoginRateLimit > 0 && s.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when LOGIN_RATE_LIMIT is set"))
	}
	if s.LoginRateWindow <= 0 {
		s.LoginRateWindow = time.Minute
	}
	if s.UploadDir == "" {
		s.UploadDir = os.TempDir()
	}

	return joinErrors(errs)
}

func (s Server) IsProduction() bool { return s.Env == "production" }

func (s Server) HTTPAddr() string { return fmt.Sprintf(":%d", s.Port) }

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func envDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
