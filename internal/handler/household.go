package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

type HouseholdHandler struct {
	userStore      *store.UserStore
	householdStore *store.HouseholdStore
	inviteStore    *store.InviteStore
	logger         *slog.Logger
	now            func() time.Time
}

func NewHouseholdHandler(us *store.UserStore, hs *store.HouseholdStore, is *store.InviteStore, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{
		userStore:      us,
		householdStore: hs,
		inviteStore:    is,
		logger:         logger,
		now:            time.Now,
	}
}

type meResponse struct {
	User       *model.User       `json:"user"`
	Households []model.Household `json:"households"`
}

func (h *HouseholdHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.userStore.GetByID(ctx, auth.UserID(ctx))
	if err != nil || user == nil {
		h.logger.Error("failed to load user", "user_id", auth.UserID(ctx), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	households, err := h.householdStore.ListForUser(ctx, user.ID)
	if err != nil {
		h.logger.Error("failed to list households", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load households")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: user, Households: households})
}

func (h *HouseholdHandler) List(w http.ResponseWriter, r *http.Request) {
	households, err := h.householdStore.ListForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("failed to list households", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list households")
		return
	}
	writeJSON(w, http.StatusOK, households)
}

// Create makes a new household with the caller as its admin.
func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if msg, ok := decodeJSON(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	household, err := h.householdStore.Create(r.Context(), req.Name, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("failed to create household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create household")
		return
	}
	writeJSON(w, http.StatusCreated, household)
}

type currentHouseholdResponse struct {
	*model.Household
	Role string `json:"role"`
}

func (h *HouseholdHandler) Current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	household, err := h.householdStore.GetByID(ctx, auth.HouseholdID(ctx))
	if err != nil {
		h.logger.Error("failed to load household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load household")
		return
	}
	if household == nil {
		writeError(w, http.StatusNotFound, "household not found")
		return
	}
	ac, _ := auth.FromContext(ctx)
	writeJSON(w, http.StatusOK, currentHouseholdResponse{Household: household, Role: ac.Role})
}

func (h *HouseholdHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.householdStore.ListMembers(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("failed to list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// CreateInvite issues a join code for the current household. Admin only.
func (h *HouseholdHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	invite, err := h.inviteStore.Create(ctx, auth.HouseholdID(ctx), auth.UserID(ctx), h.now())
	if err != nil {
		h.logger.Error("failed to create invite", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create invite")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"code":       invite.Code,
		"expires_at": invite.ExpiresAt,
	})
}

func (h *HouseholdHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if msg, ok := decodeJSON(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if store.NormalizeInviteCode(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	ctx := r.Context()
	householdID, err := h.inviteStore.Accept(ctx, req.Code, auth.UserID(ctx), h.now())
	switch {
	case errors.Is(err, store.ErrInviteNotFound):
		writeError(w, http.StatusNotFound, "invite not found")
		return
	case errors.Is(err, store.ErrInviteExpired):
		writeError(w, http.StatusGone, "invite has expired")
		return
	case errors.Is(err, store.ErrInviteUsed):
		writeError(w, http.StatusConflict, "invite has already been used")
		return
	case errors.Is(err, store.ErrAlreadyMember):
		writeError(w, http.StatusConflict, "already a member of this household")
		return
	case err != nil:
		h.logger.Error("failed to accept invite", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to accept invite")
		return
	}

	household, err := h.householdStore.GetByID(ctx, householdID)
	if err != nil || household == nil {
		h.logger.Error("failed to load joined household", "household_id", householdID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load household")
		return
	}
	writeJSON(w, http.StatusOK, household)
}
