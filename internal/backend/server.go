package backend

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/Friztone/AlertMe/pkg/logger"
	"github.com/Friztone/AlertMe/pkg/utils"
)

// Server is the reference report-management backend. It speaks the exact
// wire protocol the client core targets, which makes it both a usable local
// backend and the integration harness for the repository tests.
type Server struct {
	store  Store
	tokens *TokenIssuer
	log    *slog.Logger

	// Login throttling; nil rdb disables it.
	rdb         *redis.Client
	loginLimit  int
	loginWindow time.Duration

	uploadDir string
	now       func() time.Time
}

type Options struct {
	Redis       *redis.Client
	LoginLimit  int
	LoginWindow time.Duration
	UploadDir   string
}

func NewServer(store Store, tokens *TokenIssuer, log *slog.Logger, opts Options) *Server {
	if log == nil {
		log = slog.Default()
	}
	window := opts.LoginWindow
	if window <= 0 {
		window = time.Minute
	}
	return &Server{
		store:       store,
		tokens:      tokens,
		log:         log,
		rdb:         opts.Redis,
		loginLimit:  opts.LoginLimit,
		loginWindow: window,
		uploadDir:   opts.UploadDir,
		now:         time.Now,
	}
}

// Router wires all protocol routes. Handlers delegate to the store; keep
// this free of business logic.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/login", s.handleLogin)
	r.POST("/register", s.handleRegister)

	authed := r.Group("/")
	authed.Use(s.requireToken())
	{
		authed.GET("/me", s.handleProfile)
		authed.PUT("/user/:id/name", s.handleUpdateName)
		authed.PUT("/user/:id/password", s.handleUpdatePassword)
		authed.POST("/user/ktp", s.handleUploadKTP)

		for _, category := range Categories {
			authed.GET("/"+category, s.handleListOffices(category))
		}

		authed.POST("/laporan", s.handleSubmitReport)
		authed.GET("/laporan", s.handleListReports)
		authed.GET("/laporan/:uuid", s.handleReportDetail)
	}

	return r
}

// requireToken authenticates the raw Authorization header. The deployed
// protocol sends the bare token with no "Bearer " prefix; accept it as-is.
func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing token"})
			return
		}
		uid, err := s.tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
			return
		}
		c.Set("user_id", uid)
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

func (s *Server) handleLogin(c *gin.Context) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" || in.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "email and password are required"})
		return
	}

	if s.rdb != nil && s.loginLimit > 0 {
		ok, err := utils.AllowFixedWindow(c.Request.Context(), s.rdb,
			"login_attempts:"+in.Email, s.loginLimit, s.loginWindow)
		if err != nil {
			// Throttling is best-effort; an unreachable Redis must not
			// block logins.
			logger.FromGin(c).Warn("login throttle check failed", "err", err)
		} else if !ok {
			c.JSON(http.StatusTooManyRequests, gin.H{"msg": "too many login attempts"})
			return
		}
	}

	u, err := s.store.UserByEmail(c.Request.Context(), in.Email)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "wrong email or password"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "wrong email or password"})
		return
	}

	s.issueToken(c, u.ID)
}

func (s *Server) handleRegister(c *gin.Context) {
	var in struct {
		Name         string `json:"name"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		ConfPassword string `json:"confPassword"`
	}
	if err := c.ShouldBindJSON(&in); err != nil ||
		in.Name == "" || in.Email == "" || in.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "name, email and password are required"})
		return
	}
	if in.Password != in.ConfPassword {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "passwords do not match"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.internalError(c, err)
		return
	}

	u := User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"msg": "email already registered"})
			return
		}
		s.internalError(c, err)
		return
	}

	s.issueToken(c, u.ID)
}

func (s *Server) issueToken(c *gin.Context, userID string) {
	tok, err := s.tokens.Issue(s.now(), userID)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

func (s *Server) handleProfile(c *gin.Context) {
	u, err := s.store.UserByID(c.Request.Context(), currentUserID(c))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"msg": "user not found"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": u.Name, "email": u.Email})
}

func (s *Server) handleUpdateName(c *gin.Context) {
	if c.Param("id") != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"msg": "cannot modify another user"})
		return
	}
	var in struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "name is required"})
		return
	}
	if err := s.store.UpdateUserName(c.Request.Context(), currentUserID(c), in.Name); err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "name updated"})
}

func (s *Server) handleUpdatePassword(c *gin.Context) {
	if c.Param("id") != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"msg": "cannot modify another user"})
		return
	}
	var in struct {
		OldPassword  string `json:"oldPassword"`
		NewPassword  string `json:"newPassword"`
		ConfPassword string `json:"confPassword"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.OldPassword == "" || in.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "old and new passwords are required"})
		return
	}
	if in.NewPassword != in.ConfPassword {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "passwords do not match"})
		return
	}

	u, err := s.store.UserByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.internalError(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.OldPassword)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "wrong password"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if err := s.store.UpdateUserPassword(c.Request.Context(), u.ID, string(hash)); err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "password updated"})
}

func (s *Server) handleUploadKTP(c *gin.Context) {
	file, err := c.FormFile("ktp")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "ktp file is required"})
		return
	}
	saved, err := s.saveUpload(c, file, "ktp")
	if err != nil {
		s.internalError(c, err)
		return
	}
	if err := s.store.SetUserKTP(c.Request.Context(), currentUserID(c), saved); err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ktp uploaded"})
}

func (s *Server) handleListOffices(category string) gin.HandlerFunc {
	return func(c *gin.Context) {
		offices, err := s.store.ListOffices(c.Request.Context(), category)
		if err != nil {
			s.internalError(c, err)
			return
		}
		out := make([]gin.H, 0, len(offices))
		for _, o := range offices {
			entry := gin.H{"uuid": o.ID, "name": o.Name, "alamat": o.Address}
			if o.Phone != "" {
				entry["telfon"] = o.Phone
			}
			out = append(out, entry)
		}
		c.JSON(http.StatusOK, out)
	}
}

func (s *Server) handleSubmitReport(c *gin.Context) {
	officeID := c.PostForm("kantorUuid")
	title := c.PostForm("name")
	description := c.PostForm("deskripsi")
	location := c.PostForm("lokasi_kejadian")
	if officeID == "" || title == "" || description == "" || location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "kantorUuid, name, deskripsi and lokasi_kejadian are required"})
		return
	}

	if _, err := s.store.OfficeByID(c.Request.Context(), officeID); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"msg": "office not found"})
			return
		}
		s.internalError(c, err)
		return
	}

	var attachment string
	if file, err := c.FormFile("laporan"); err == nil {
		attachment, err = s.saveUpload(c, file, "laporan")
		if err != nil {
			s.internalError(c, err)
			return
		}
	}

	rp := NewReport(officeID, currentUserID(c), title, description, location, attachment, s.now().UTC())
	if err := s.store.CreateReport(c.Request.Context(), rp); err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"msg": "report submitted", "uuid": rp.ID})
}

func (s *Server) handleListReports(c *gin.Context) {
	userUUID := c.Query("user_uuid")
	if userUUID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "user_uuid is required"})
		return
	}
	if userUUID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"msg": "cannot read another user's reports"})
		return
	}

	reports, err := s.store.ReportsByUser(c.Request.Context(), userUUID)
	if err != nil {
		s.internalError(c, err)
		return
	}
	out := make([]gin.H, 0, len(reports))
	for _, rp := range reports {
		entry, err := s.reportJSON(c, rp)
		if err != nil {
			s.internalError(c, err)
			return
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleReportDetail(c *gin.Context) {
	rp, err := s.store.ReportByID(c.Request.Context(), c.Param("uuid"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"msg": "report not found"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	if rp.UserID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"msg": "cannot read another user's report"})
		return
	}

	entry, err := s.reportJSON(c, rp)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// reportJSON renders the protocol shape: report fields flat, office nested
// under "kantor", telfon omitted when the office has no phone.
func (s *Server) reportJSON(c *gin.Context, rp Report) (gin.H, error) {
	office, err := s.store.OfficeByID(c.Request.Context(), rp.OfficeID)
	if err != nil {
		return nil, err
	}
	kantor := gin.H{"name": office.Name, "alamat": office.Address}
	if office.Phone != "" {
		kantor["telfon"] = office.Phone
	}
	return gin.H{
		"uuid":            rp.ID,
		"name":            rp.Title,
		"deskripsi":       rp.Description,
		"lokasi_kejadian": rp.Location,
		"status":          rp.Status,
		"createdAt":       rp.CreatedAt.Format(time.RFC3339),
		"user_uuid":       rp.UserID,
		"kantor":          kantor,
	}, nil
}

func (s *Server) saveUpload(c *gin.Context, file *multipart.FileHeader, kind string) (string, error) {
	name := kind + "-" + uuid.NewString() + filepath.Ext(file.Filename)
	dir := s.uploadDir
	if dir == "" {
		dir = "."
	}
	if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Server) internalError(c *gin.Context, err error) {
	logger.FromGin(c).Error("handler failed", "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
}
