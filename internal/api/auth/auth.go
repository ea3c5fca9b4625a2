package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jalaleddinemaoukil/interventions-m1/internal/api/middleware"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/model"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/pkg/metrics"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/pkg/notify"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/pkg/token"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrDuplicateEmail is returned by UserStore.Create when the email is
	// already registered.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrUserNotFound is returned by the lookup methods on a miss.
	ErrUserNotFound = errors.New("user not found")
)

// UserStore is the credential store the handlers run against.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint) (*model.User, error)
	// Create inserts the user, relying on the unique email index: a
	// concurrent duplicate registration loses with ErrDuplicateEmail
	// instead of racing a separate existence check.
	Create(ctx context.Context, user *model.User) error
}

// Handler provides the registration, login and identity endpoints.
type Handler struct {
	users      UserStore
	tokens     *token.Service
	mailer     notify.Notifier
	logger     *slog.Logger
	accessTTL  time.Duration // registration confirmation token
	sessionTTL time.Duration // login session token
}

// NewHandler creates the auth handler.
func NewHandler(users UserStore, tokens *token.Service, mailer notify.Notifier, logger *slog.Logger, accessTTL, sessionTTL time.Duration) *Handler {
	return &Handler{
		users:      users,
		tokens:     tokens,
		mailer:     mailer,
		logger:     logger,
		accessTTL:  accessTTL,
		sessionTTL: sessionTTL,
	}
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account and returns a short-lived access token.
//
// POST /create-account
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": err.Error()})
		return
	}
	fullName := strings.TrimSpace(req.FullName)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if fullName == "" || email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "All fields are required"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
		return
	}

	user := &model.User{
		FullName: fullName,
		Email:    email,
		Password: string(hash),
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Employee already exists"})
			return
		}
		h.logger.Error("create user failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
		return
	}

	accessToken, err := h.tokens.Issue(identityOf(user), h.accessTTL)
	if err != nil {
		h.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
		return
	}

	if h.mailer != nil {
		go func(to, name string) {
			if err := h.mailer.SendWelcome(context.Background(), to, name); err != nil {
				h.logger.Warn("welcome email failed", slog.String("email", to), slog.String("error", err.Error()))
			}
		}(user.Email, user.FullName)
	}

	metrics.RegistrationsTotal.Inc()
	h.logger.Info("user registered", slog.String("email", email))
	c.JSON(http.StatusOK, gin.H{
		"error":       false,
		"user":        user,
		"accessToken": accessToken,
		"message":     "Registration Successful",
	})
}

// Login validates credentials and returns a long-lived session token.
//
// POST /login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Email and password are required"})
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			metrics.AuthFailuresTotal.WithLabelValues("bad_credentials").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Invalid Credentials"})
			return
		}
		h.logger.Error("find user failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
		return
	}

	if !verifyPassword(user.Password, req.Password) {
		metrics.AuthFailuresTotal.WithLabelValues("bad_credentials").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Invalid Credentials"})
		return
	}

	accessToken, err := h.tokens.Issue(identityOf(user), h.sessionTTL)
	if err != nil {
		h.logger.Error("sign token failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
		return
	}

	metrics.LoginsTotal.Inc()
	h.logger.Info("user logged in", slog.String("email", email))
	c.JSON(http.StatusOK, gin.H{
		"error":       false,
		"message":     "Login Successful",
		"email":       email,
		"accessToken": accessToken,
	})
}

// Me re-resolves the authenticated user from the store so the response
// reflects the current record, not the token snapshot.
//
// GET /employee
func (h *Handler) Me(c *gin.Context) {
	userID := c.GetUint(middleware.CtxUserID)

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Employee not found"})
			return
		}
		h.logger.Error("find user failed", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":        user.ID,
			"fullName":  user.FullName,
			"email":     user.Email,
			"createdOn": user.CreatedOn,
		},
		"message": "",
	})
}

func identityOf(u *model.User) token.Identity {
	return token.Identity{
		UserID:   u.ID,
		FullName: u.FullName,
		Email:    u.Email,
	}
}

// verifyPassword checks a supplied password against the stored credential.
// New accounts store bcrypt hashes; rows predating hashing hold plaintext
// and are compared in constant time.
func verifyPassword(stored, supplied string) bool {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
