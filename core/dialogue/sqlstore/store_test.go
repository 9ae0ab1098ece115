package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m3rciful/botkit/core/database"
	"github.com/m3rciful/botkit/core/dialogue/sqlstore"
	"github.com/m3rciful/botkit/core/dialogue/storagetest"
)

func TestSQLiteStoreContract(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "dialogues.db")
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.RunMigrations(context.Background(), db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := sqlstore.New(db)
	defer func() { _ = store.Close() }()

	storagetest.Run(t, store)
}
