package handlers

import (
	"net/http"

	"github.com/bensuskins/command-center/internal/middleware"
	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/repository"
	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	userRepo repository.UserRepository
}

func NewAdminHandler(userRepo repository.UserRepository) *AdminHandler {
	return &AdminHandler{userRepo: userRepo}
}

func (handler *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := handler.userRepo.FindAll(r.Context())
	if err != nil {
		writeError(w, "loading users", err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (handler *AdminHandler) PromoteUser(w http.ResponseWriter, r *http.Request) {
	handler.setRole(w, r, models.RoleAdmin)
}

func (handler *AdminHandler) DemoteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == middleware.GetUser(r.Context()).ID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot demote yourself"})
		return
	}
	handler.setRole(w, r, models.RoleMember)
}

func (handler *AdminHandler) setRole(w http.ResponseWriter, r *http.Request, role models.Role) {
	userID := chi.URLParam(r, "id")
	if err := handler.userRepo.UpdateRole(r.Context(), userID, role); err != nil {
		writeError(w, "updating user role", err)
		return
	}
	user, err := handler.userRepo.FindByID(r.Context(), userID)
	if err != nil {
		writeError(w, "loading user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
