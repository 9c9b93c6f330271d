package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/trailhead-tours/trailhead/internal/domain"
	"github.com/trailhead-tours/trailhead/internal/http/middleware"
	"github.com/trailhead-tours/trailhead/internal/http/response"
	"github.com/trailhead-tours/trailhead/internal/service"
	"github.com/trailhead-tours/trailhead/pkg/logger"
)

type UserHandler struct {
	users service.UserService
}

func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)
	if user == nil {
		response.Unauthorized(w)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"user":   user,
	})
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)
	if user == nil {
		response.Unauthorized(w)
		return
	}

	var req domain.UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	updated, err := h.users.UpdateMe(r.Context(), user.ID, &req)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			response.BadRequest(w, "A user with this email already exists")
			return
		}
		if domain.IsValidationError(err) {
			response.BadRequest(w, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "update-me failed", "error", err)
		response.InternalError(w, "Could not update profile")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"user":   updated,
	})
}

func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)
	if user == nil {
		response.Unauthorized(w)
		return
	}

	if err := h.users.DeleteMe(r.Context(), user.ID); err != nil {
		logger.ErrorContext(r.Context(), "delete-me failed", "error", err)
		response.InternalError(w, "Could not deactivate account")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Admin surface.

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.users.ListUsers(r.Context(), limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "list users failed", "error", err)
		response.InternalError(w, "Could not list users")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"results": len(users),
		"users":   users,
	})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		logger.ErrorContext(r.Context(), "get user failed", "error", err)
		response.InternalError(w, "Could not get user")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"user":   user,
	})
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req domain.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, err := h.users.UpdateUser(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		if errors.Is(err, domain.ErrDuplicateEmail) {
			response.BadRequest(w, "A user with this email already exists")
			return
		}
		logger.ErrorContext(r.Context(), "update user failed", "error", err)
		response.InternalError(w, "Could not update user")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"user":   user,
	})
}

func (h *UserHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req domain.UpdateUserRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.users.UpdateUserRole(r.Context(), id, req.Role); err != nil {
		if domain.IsValidationError(err) {
			response.BadRequest(w, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "update role failed", "error", err)
		response.InternalError(w, "Could not update role")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "User role updated",
	})
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		logger.ErrorContext(r.Context(), "delete user failed", "error", err)
		response.InternalError(w, "Could not delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
