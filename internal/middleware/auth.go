package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
)

// HouseholdHeader selects which of the caller's households a request acts on.
const HouseholdHeader = "X-Household-ID"

// UserProvisioner creates or refreshes the local user for a token subject.
type UserProvisioner interface {
	Upsert(ctx context.Context, externalID, email, name string) (*model.User, error)
}

// MembershipStore resolves a user's households.
type MembershipStore interface {
	GetMember(ctx context.Context, householdID, userID int64) (*model.HouseholdMember, error)
	ListForUser(ctx context.Context, userID int64) ([]model.Household, error)
}

// RequireUser verifies the bearer token and provisions the user on first
// sight. Browsers cannot set headers on websocket upgrades, so the token may
// also arrive as the access_token query parameter.
func RequireUser(verifier *auth.Verifier, users UserProvisioner, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("token rejected", "error", err)
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			user, err := users.Upsert(r.Context(), claims.Subject, claims.Email, claims.Name)
			if err != nil || user == nil {
				logger.Error("failed to provision user", "subject", claims.Subject, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to load user")
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: user.ID, Subject: claims.Subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireHousehold resolves the household from the X-Household-ID header
// (or household_id query parameter), defaulting to the caller's first
// household, and checks membership.
func RequireHousehold(households MembershipStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			raw := r.Header.Get(HouseholdHeader)
			if raw == "" {
				raw = r.URL.Query().Get("household_id")
			}

			var householdID int64
			if raw != "" {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || id <= 0 {
					writeError(w, http.StatusBadRequest, "invalid household id")
					return
				}
				householdID = id
			} else {
				list, err := households.ListForUser(r.Context(), ac.UserID)
				if err != nil {
					logger.Error("failed to list households", "user_id", ac.UserID, "error", err)
					writeError(w, http.StatusInternalServerError, "failed to load households")
					return
				}
				if len(list) == 0 {
					writeError(w, http.StatusForbidden, "create or join a household first")
					return
				}
				householdID = list[0].ID
			}

			member, err := households.GetMember(r.Context(), householdID, ac.UserID)
			if err != nil {
				logger.Error("failed to load membership", "household_id", householdID, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to load household")
				return
			}
			if member == nil {
				writeError(w, http.StatusForbidden, "not a member of this household")
				return
			}

			ac.HouseholdID = householdID
			ac.Role = member.Role
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// RequireAdmin checks that the caller administers the current household.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
