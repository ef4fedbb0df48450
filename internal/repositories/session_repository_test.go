package repositories

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"captionstudio/internal/models"
	"captionstudio/internal/render"
	"captionstudio/internal/util"

	"github.com/jackc/pgx/v5/pgxpool"
)

// newTestRepository connects to TEST_DATABASE_URL or skips.
func newTestRepository(t *testing.T) *SessionRepository {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	repo := NewSessionRepository(pool)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return repo
}

func TestSessionLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	s := &models.RenderSession{
		ID:            util.NewID("ses"),
		CompositionID: "CaptionedVideo",
		InputProps:    json.RawMessage(`{"videoUrl":"https://cdn.example.com/in.mp4"}`),
		State:         render.SnapshotOf(render.Init{}),
	}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, s); err != ErrSessionExists {
		t.Errorf("duplicate Create = %v, want ErrSessionExists", err)
	}

	ok, err := repo.UpdateState(ctx, s.ID, 0, render.SnapshotOf(render.Invoking{}))
	if err != nil || !ok {
		t.Fatalf("UpdateState = %v, %v", ok, err)
	}

	gen, err := repo.Reset(ctx, s.ID)
	if err != nil || gen != 1 {
		t.Fatalf("Reset = %d, %v", gen, err)
	}

	ok, err = repo.UpdateState(ctx, s.ID, 0, render.SnapshotOf(render.Done{URL: "late"}))
	if err != nil || ok {
		t.Errorf("stale UpdateState = %v, %v; want discarded", ok, err)
	}

	got, err := repo.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State.Status != render.StatusInit || got.Generation != 1 {
		t.Errorf("session = %+v", got)
	}

	if _, err := repo.Get(ctx, "ses_missing"); err != ErrSessionNotFound {
		t.Errorf("Get missing = %v", err)
	}
	if _, err := repo.Reset(ctx, "ses_missing"); err != ErrSessionNotFound {
		t.Errorf("Reset missing = %v", err)
	}
}
