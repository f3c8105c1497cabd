package handlers

import (
	"net/http"

	"github.com/Dosada05/rating-board/services"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(us services.UserService) *UserHandler {
	return &UserHandler{
		userService: us,
	}
}

// ListUsers responds with the full merged snapshot as a bare array.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err = writeJSON(w, http.StatusOK, users, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetAlgorithmRate responds with the member's algorithm-category rating,
// or null for an unknown member or an unlinked account.
func (h *UserHandler) GetAlgorithmRate(w http.ResponseWriter, r *http.Request) {
	trapAccountName := chi.URLParam(r, "trapAccountName")

	rate, err := h.userService.AlgorithmRate(r.Context(), trapAccountName)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err = writeJSON(w, http.StatusOK, rate, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHeuristicRate behaves like GetAlgorithmRate for the heuristic
// category.
func (h *UserHandler) GetHeuristicRate(w http.ResponseWriter, r *http.Request) {
	trapAccountName := chi.URLParam(r, "trapAccountName")

	rate, err := h.userService.HeuristicRate(r.Context(), trapAccountName)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err = writeJSON(w, http.StatusOK, rate, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
