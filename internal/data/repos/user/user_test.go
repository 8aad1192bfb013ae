package user

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coach/internal/data/repos/testutil"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
)

func TestUserRepoRoles(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	admin := testutil.SeedUser(t, ctx, db, "admin@example.com", "admin")
	roles, err := repo.Roles(dbc, admin.ID)
	if err != nil || len(roles) != 1 || roles[0] != "admin" {
		t.Fatalf("Roles: err=%v roles=%v", err, roles)
	}

	roles, err = repo.Roles(dbc, uuid.New())
	if err != nil || len(roles) != 0 {
		t.Fatalf("Roles for unknown user: err=%v roles=%v", err, roles)
	}
}
