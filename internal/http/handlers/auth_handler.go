package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/trailhead-tours/trailhead/internal/domain"
	"github.com/trailhead-tours/trailhead/internal/http/middleware"
	"github.com/trailhead-tours/trailhead/internal/http/response"
	"github.com/trailhead-tours/trailhead/internal/repo/redisrepo"
	"github.com/trailhead-tours/trailhead/internal/service"
	"github.com/trailhead-tours/trailhead/pkg/config"
	"github.com/trailhead-tours/trailhead/pkg/logger"
)

type AuthHandler struct {
	auth    service.AuthService
	limiter redisrepo.RateLimiter
	cfg     *config.Config
}

func NewAuthHandler(auth service.AuthService, limiter redisrepo.RateLimiter, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, limiter: limiter, cfg: cfg}
}

type sessionResponse struct {
	Status string       `json:"status"`
	Token  string       `json:"token"`
	User   *domain.User `json:"user,omitempty"`
}

// setSessionCookie mirrors the token into an HttpOnly cookie so browser
// clients stay logged in without storing the token themselves.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, tok string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(h.cfg.Auth.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, tok, err := h.auth.Signup(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			response.BadRequest(w, "A user with this email already exists")
			return
		}
		if domain.IsValidationError(err) {
			response.BadRequest(w, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "signup failed", "error", err)
		response.InternalError(w, "Could not create account")
		return
	}

	h.setSessionCookie(w, tok)
	response.WriteJSON(w, http.StatusCreated, sessionResponse{
		Status: "success",
		Token:  tok,
		User:   user,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	req.Normalize()

	if !h.allow(r, "login:"+req.Email) {
		response.RateLimited(w)
		return
	}

	user, tok, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		if domain.IsValidationError(err) {
			response.BadRequest(w, err.Error())
			return
		}
		if errors.Is(err, domain.ErrInvalidCredentials) {
			response.WriteError(w, http.StatusUnauthorized, "Incorrect email or password", response.CodeUnauthorized)
			return
		}
		logger.ErrorContext(r.Context(), "login failed", "error", err)
		response.InternalError(w, "Could not log in")
		return
	}

	h.setSessionCookie(w, tok)
	response.WriteJSON(w, http.StatusOK, sessionResponse{
		Status: "success",
		Token:  tok,
		User:   user,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// forgotPasswordBody is the one generic response for the forgot flow,
// byte-identical whether or not the email exists.
var forgotPasswordBody = map[string]string{
	"status":  "success",
	"message": "If an account with that email exists, a reset token has been sent.",
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	req.Normalize()

	if !h.allow(r, "forgot:"+req.Email) {
		response.RateLimited(w)
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), &req); err != nil {
		if domain.IsValidationError(err) {
			response.BadRequest(w, err.Error())
			return
		}
		if errors.Is(err, domain.ErrDeliveryFailed) {
			response.InternalError(w, "There was an error sending the email. Try again later.")
			return
		}
		logger.ErrorContext(r.Context(), "forgot-password failed", "error", err)
		response.InternalError(w, "Something went wrong. Try again later.")
		return
	}

	response.WriteJSON(w, http.StatusOK, forgotPasswordBody)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	rawToken := chi.URLParam(r, "token")
	if rawToken == "" {
		response.BadRequest(w, "Missing reset token")
		return
	}

	var req domain.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, tok, err := h.auth.ResetPassword(r.Context(), rawToken, &req)
	if err != nil {
		if domain.IsValidationError(err) {
			response.BadRequest(w, err.Error())
			return
		}
		if errors.Is(err, domain.ErrResetTokenInvalid) {
			response.WriteError(w, http.StatusBadRequest, "Token is invalid or has expired", response.CodeInvalidToken)
			return
		}
		logger.ErrorContext(r.Context(), "reset-password failed", "error", err)
		response.InternalError(w, "Could not reset password")
		return
	}

	h.setSessionCookie(w, tok)
	response.WriteJSON(w, http.StatusOK, sessionResponse{
		Status: "success",
		Token:  tok,
		User:   user,
	})
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)
	if user == nil {
		response.Unauthorized(w)
		return
	}

	var req domain.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	tok, err := h.auth.UpdatePassword(r.Context(), user, &req)
	if err != nil {
		if domain.IsValidationError(err) {
			response.BadRequest(w, err.Error())
			return
		}
		if errors.Is(err, domain.ErrInvalidCredentials) {
			response.WriteError(w, http.StatusUnauthorized, "Your current password is wrong", response.CodeUnauthorized)
			return
		}
		logger.ErrorContext(r.Context(), "update-password failed", "error", err)
		response.InternalError(w, "Could not update password")
		return
	}

	h.setSessionCookie(w, tok)
	response.WriteJSON(w, http.StatusOK, sessionResponse{
		Status: "success",
		Token:  tok,
	})
}

// allow consults the rate limiter keyed by target plus client IP; a nil
// limiter (tests) always allows.
func (h *AuthHandler) allow(r *http.Request, key string) bool {
	if h.limiter == nil {
		return true
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	ok, _ := h.limiter.Allow(r.Context(), key+":"+ip, h.cfg.Auth.LoginRateLimit, h.cfg.Auth.LoginRateWindow)
	return ok
}
