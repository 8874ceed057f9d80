package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/clienthub/clienthub/internal/middleware"
	"github.com/clienthub/clienthub/internal/store"
)

const minPasswordLength = 8

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthHandler manages signup, login, and the current-user endpoint.
type AuthHandler struct {
	Users    *store.UserStore
	Auth     *middleware.Authenticator
	TokenTTL time.Duration
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailRegex.MatchString(email) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid email"})
		return
	}
	if len(req.Password) < minPasswordLength {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "password must be at least 8 characters"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "missing name"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		sendJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	user, err := h.Users.Create(r.Context(), email, string(hash), name)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			sendJSON(w, http.StatusConflict, errorResponse{Error: "email already registered"})
			return
		}
		sendJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create user"})
		return
	}

	token, err := h.Auth.IssueToken(user.ID, h.TokenTTL)
	if err != nil {
		sendJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to issue token"})
		return
	}

	sendJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "missing email or password"})
		return
	}

	user, err := h.Users.GetByEmail(r.Context(), email)
	if err != nil {
		// Unknown email and bad password answer identically.
		if errors.Is(err, store.ErrNotFound) {
			sendJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
			return
		}
		sendJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		sendJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	token, err := h.Auth.IssueToken(user.ID, h.TokenTTL)
	if err != nil {
		sendJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to issue token"})
		return
	}

	sendJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Get(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}
