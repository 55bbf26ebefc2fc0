//go:build integration

// Integration tests for the Postgres backend. They start a throwaway
// Postgres container via testcontainers.
//
// Run with: go test -tags=integration -v ./internal/docstore/...
package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mesa-rpg/mesa/internal/session"
)

func startPostgres(t *testing.T) (context.Context, *PostgresBackend) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("mesa"),
		tcpostgres.WithUsername("mesa"),
		tcpostgres.WithPassword("mesa"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("could not start postgres container (docker unavailable?): %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	backend, err := NewPostgresBackend(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgresBackend failed: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	return ctx, backend
}

func TestPostgresBackend_RoundTrip(t *testing.T) {
	ctx, backend := startPostgres(t)

	if _, err := backend.Load(ctx); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument on empty table, got %v", err)
	}

	doc := session.NewDocument()
	doc.Scenes[0].Players = []session.Player{
		session.NewPlayer(session.Player{CharacterName: "Aria", MaxHP: 20}),
	}
	if err := backend.Save(ctx, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := backend.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Scenes[0].Players[0].CharacterName != "Aria" {
		t.Errorf("round trip lost player data: %+v", loaded.Scenes[0].Players)
	}
}

func TestPostgresBackend_SaveIsUpsert(t *testing.T) {
	ctx, backend := startPostgres(t)

	for i := 0; i < 3; i++ {
		doc := session.NewDocument()
		doc.Revision = int64(i)
		if err := backend.Save(ctx, doc); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	loaded, err := backend.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Revision != 2 {
		t.Errorf("expected revision 2 after repeated saves, got %d", loaded.Revision)
	}
}

func TestPostgresBackend_UnderStore(t *testing.T) {
	ctx, backend := startPostgres(t)
	store := New(backend)

	if _, err := store.Seed(ctx); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	doc, err := store.Update(ctx, func(d *session.Document) error {
		d.Scenes[0].Mobs = append(d.Scenes[0].Mobs, session.NewMob(session.Mob{Name: "Wolf", MaxHP: 10}))
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if doc.Revision != 1 {
		t.Errorf("expected revision 1, got %d", doc.Revision)
	}
}
