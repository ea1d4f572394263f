package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
)

func TestMe(t *testing.T) {
	f := setupHandlerTest(t)
	rr := serve(f.householdHandler().Me, f.request(http.MethodGet, "/api/me", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got := decode[meResponse](t, rr)
	if got.User == nil || got.User.Email != "owner@example.com" {
		t.Errorf("unexpected user %+v", got.User)
	}
	if len(got.Households) != 1 || got.Households[0].ID != f.householdID {
		t.Errorf("unexpected households %+v", got.Households)
	}
}

func TestCreateHousehold(t *testing.T) {
	f := setupHandlerTest(t)
	h := f.householdHandler()

	rr := serve(h.Create, f.request(http.MethodPost, "/api/households", `{"name":" Beach House "}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decode[model.Household](t, rr)
	if created.Name != "Beach House" {
		t.Errorf("expected trimmed name, got %q", created.Name)
	}

	member, err := f.households.GetMember(context.Background(), created.ID, f.user.ID)
	if err != nil || member == nil {
		t.Fatalf("expected creator membership: %v", err)
	}
	if member.Role != model.RoleAdmin {
		t.Errorf("expected admin role, got %q", member.Role)
	}

	rr = serve(h.List, f.request(http.MethodGet, "/api/households", ""))
	if list := decode[[]model.Household](t, rr); len(list) != 2 {
		t.Errorf("expected 2 households, got %d", len(list))
	}

	if rr := serve(h.Create, f.request(http.MethodPost, "/api/households", `{"name":""}`)); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty name, got %d", rr.Code)
	}
}

type currentView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func TestCurrentHouseholdAndMembers(t *testing.T) {
	f := setupHandlerTest(t)
	h := f.householdHandler()

	rr := serve(h.Current, f.request(http.MethodGet, "/api/households/current", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	current := decode[currentView](t, rr)
	if current.ID != f.householdID || current.Name != "Home" || current.Role != model.RoleAdmin {
		t.Errorf("unexpected current household %+v", current)
	}

	rr = serve(h.Members, f.request(http.MethodGet, "/api/households/current/members", ""))
	members := decode[[]model.HouseholdMember](t, rr)
	if len(members) != 1 || members[0].UserID != f.user.ID {
		t.Errorf("unexpected members %+v", members)
	}
}

func TestInviteFlow(t *testing.T) {
	f := setupHandlerTest(t)
	h := f.householdHandler()

	rr := serve(h.CreateInvite, f.request(http.MethodPost, "/api/invites", ""))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	invite := decode[map[string]any](t, rr)
	code, _ := invite["code"].(string)
	if len(code) != 8 {
		t.Fatalf("expected 8 character code, got %q", code)
	}
	if invite["expires_at"] == nil {
		t.Error("expected expires_at")
	}

	guest, err := f.users.Upsert(context.Background(), "auth|guest", "guest@example.com", "Guest")
	if err != nil {
		t.Fatalf("create guest: %v", err)
	}
	asGuest := auth.AuthContext{UserID: guest.ID}

	rr = serve(h.AcceptInvite, f.requestAs(asGuest, http.MethodPost, "/api/invites/accept", `{"code":"`+code[:4]+"-"+code[4:]+`"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if joined := decode[model.Household](t, rr); joined.ID != f.householdID {
		t.Errorf("expected to join household %d, got %d", f.householdID, joined.ID)
	}

	member, err := f.households.GetMember(context.Background(), f.householdID, guest.ID)
	if err != nil || member == nil || member.Role != model.RoleMember {
		t.Fatalf("expected guest member, got %+v (%v)", member, err)
	}

	rr = serve(h.AcceptInvite, f.requestAs(asGuest, http.MethodPost, "/api/invites/accept", `{"code":"`+code+`"}`))
	if rr.Code != http.StatusConflict {
		t.Errorf("expected 409 for used invite, got %d", rr.Code)
	}
}

func TestAcceptInviteErrors(t *testing.T) {
	f := setupHandlerTest(t)
	h := f.householdHandler()

	if rr := serve(h.AcceptInvite, f.request(http.MethodPost, "/api/invites/accept", `{"code":""}`)); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty code, got %d", rr.Code)
	}
	if rr := serve(h.AcceptInvite, f.request(http.MethodPost, "/api/invites/accept", `{"code":"ZZZZZZZZ"}`)); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown code, got %d", rr.Code)
	}

	rr := serve(h.CreateInvite, f.request(http.MethodPost, "/api/invites", ""))
	code := decode[map[string]any](t, rr)["code"].(string)
	if rr := serve(h.AcceptInvite, f.request(http.MethodPost, "/api/invites/accept", `{"code":"`+code+`"}`)); rr.Code != http.StatusConflict {
		t.Errorf("expected 409 when already a member, got %d", rr.Code)
	}
}
