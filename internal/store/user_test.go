package store

import (
	"context"
	"testing"
)

func TestUserUpsert(t *testing.T) {
	_, us, _ := setupHouseholdTestDB(t)
	ctx := context.Background()

	u, err := us.Upsert(ctx, "auth0|123", "jo@example.com", "Jo")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if u.ID == 0 || u.ExternalID != "auth0|123" || u.Email != "jo@example.com" {
		t.Errorf("user = %+v", u)
	}

	again, err := us.Upsert(ctx, "auth0|123", "", "Joanna")
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if again.ID != u.ID {
		t.Errorf("id changed from %d to %d", u.ID, again.ID)
	}
	if again.Email != "jo@example.com" {
		t.Errorf("empty email overwrote stored value: %q", again.Email)
	}
	if again.Name != "Joanna" {
		t.Errorf("name = %q, want Joanna", again.Name)
	}
}

func TestUserGetByExternalIDNotFound(t *testing.T) {
	_, us, _ := setupHouseholdTestDB(t)

	u, err := us.GetByExternalID(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil, got %+v", u)
	}
}
