package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/repository"
	"github.com/bensuskins/command-center/internal/testutil"
)

func TestUserRepository_CreateDefaultsToMember(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, models.User{OIDCSubject: "sub-123", Email: "kid@example.com", Name: "Kid"})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected non-empty ID")
	}

	found, err := repo.FindByOIDCSubject(ctx, "sub-123")
	if err != nil {
		t.Fatalf("finding user by subject: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("expected id %s, got %s", created.ID, found.ID)
	}
	if found.Role != models.RoleMember {
		t.Errorf("expected member role, got '%s'", found.Role)
	}
}

func TestUserRepository_FindAllOrderedByName(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	repo.Create(ctx, models.User{OIDCSubject: "s2", Name: "Remi"})
	repo.Create(ctx, models.User{OIDCSubject: "s1", Name: "Ben", Role: models.RoleAdmin})

	users, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("finding users: %v", err)
	}
	if len(users) != 2 || users[0].Name != "Ben" || users[1].Name != "Remi" {
		t.Errorf("expected [Ben Remi], got %v", users)
	}
}

func TestUserRepository_UpdateRoleAndProfile(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	created, _ := repo.Create(ctx, models.User{OIDCSubject: "s1", Name: "Alice"})

	if err := repo.UpdateRole(ctx, created.ID, models.RoleAdmin); err != nil {
		t.Fatalf("updating role: %v", err)
	}
	if err := repo.UpdateProfile(ctx, created.ID, "Alice B", "alice@example.com", "https://example.com/a.png"); err != nil {
		t.Fatalf("updating profile: %v", err)
	}

	found, _ := repo.FindByID(ctx, created.ID)
	if found.Role != models.RoleAdmin {
		t.Errorf("expected admin role, got '%s'", found.Role)
	}
	if found.Name != "Alice B" || found.Email != "alice@example.com" {
		t.Errorf("expected updated profile, got %+v", found)
	}
}

func TestUserRepository_UpdateRoleMissing(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	repo := repository.NewUserRepository(db)

	if err := repo.UpdateRole(context.Background(), "ghost", models.RoleAdmin); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUserRepository_Count(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("counting users: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 users, got %d", count)
	}

	repo.Create(ctx, models.User{OIDCSubject: "s1", Name: "Alice", Role: models.RoleAdmin})

	count, _ = repo.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 user, got %d", count)
	}
}
