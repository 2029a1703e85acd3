package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/proctor/internal/apperr"
	appI18n "github.com/pavelanni/proctor/internal/i18n"
	"github.com/pavelanni/proctor/internal/model"
)

const sessionCookieName = "session"

// requireAuth is middleware that resolves the session cookie to a user and
// stores it in the request context. API clients get a JSON 401, not a
// redirect.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			respondError(w, r, apperr.Unauthorized("authentication required"))
			return
		}

		user, err := h.store.SessionUser(cookie.Value)
		if err != nil {
			slog.Error("failed to resolve session", "error", err)
			respondError(w, r, apperr.Unauthorized("authentication required"))
			return
		}
		if user == nil {
			respondError(w, r, apperr.Unauthorized("session expired"))
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireStaff is middleware that restricts a route to teachers and admins.
func requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := model.UserFromContext(r.Context())
		if user == nil {
			respondError(w, r, apperr.Unauthorized("authentication required"))
			return
		}
		if !user.IsStaff() {
			respondError(w, r, apperr.Forbidden("teacher or admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Class      string `json:"class"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, r, apperr.Validation("please provide name, email and password"))
		return
	}
	if len(req.Password) < 8 {
		respondError(w, r, apperr.Validation("password must be at least 8 characters"))
		return
	}

	role := model.UserRole(req.Role)
	switch role {
	case "":
		role = model.UserRoleStudent
	case model.UserRoleStudent, model.UserRoleTeacher:
	default:
		// Admins are seeded from the CLI, never self-registered.
		respondError(w, r, apperr.Validation("role must be student or teacher"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, r, err)
		return
	}

	id, err := h.store.CreateUser(model.User{
		Email:        req.Email,
		DisplayName:  req.Name,
		PasswordHash: string(hash),
		Role:         role,
		Department:   req.Department,
		Class:        req.Class,
		Active:       true,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	slog.Info("user registered", "user_id", id, "email", req.Email, "role", role)
	respondMessage(w, http.StatusCreated, appI18n.T(r.Context(), "Registered"))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.store.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if user == nil || !user.Active {
		respondError(w, r, apperr.Unauthorized("invalid email or password"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondError(w, r, apperr.Unauthorized("invalid email or password"))
		return
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	respondData(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	respondMessage(w, http.StatusOK, appI18n.T(r.Context(), "LoggedOut"))
}
