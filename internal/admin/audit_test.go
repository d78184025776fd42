package admin_test

import (
	"log/slog"
	"minimessenger/domain"
	"minimessenger/internal/admin"
	"minimessenger/repositories"
	"os"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

var testLog = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

func Test_Audit_Finds_One_Sided_And_Dangling_Entries(t *testing.T) {
	users := []domain.User{
		{Username: "alice", Friends: []string{"bob", "carol"}},
		{Username: "bob", Friends: []string{"alice"}},
		{Username: "carol", Friends: []string{"ghost"}},
	}

	found := admin.Audit(users)

	require.Equal(t, []admin.Asymmetry{
		{Owner: "alice", Friend: "carol"},
		{Owner: "carol", Friend: "ghost", Dangling: true},
	}, found)
}

func Test_Audit_Symmetric_Store_Is_Clean(t *testing.T) {
	users := []domain.User{
		{Username: "alice", Friends: []string{"bob"}},
		{Username: "bob", Friends: []string{"alice"}},
	}
	require.Empty(t, admin.Audit(users))
}

func Test_Repair_Restores_Symmetry(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })
	repository := repositories.NewUserRepository(db)
	for _, name := range []string{"alice", "bob"} {
		_, err = repository.CreateUser(name, "", "hash", nil)
		req.NoError(err)
	}

	// Given a friendship written on one side only
	req.NoError(repository.AddFriend("alice", "bob"))
	users, err := repository.ListUsers()
	req.NoError(err)
	found := admin.Audit(users)
	req.Len(found, 1)

	// When repairing
	fixed, err := admin.Repair(testLog, repository, found)
	req.NoError(err)
	req.Equal(1, fixed)

	// Then both sides agree
	users, err = repository.ListUsers()
	req.NoError(err)
	req.Empty(admin.Audit(users))
}

func Test_Repair_Skips_Dangling(t *testing.T) {
	fixed, err := admin.Repair(testLog, nil, []admin.Asymmetry{{Owner: "carol", Friend: "ghost", Dangling: true}})
	require.NoError(t, err)
	require.Zero(t, fixed)
}
