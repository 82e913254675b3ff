package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-recipe-backend/internal/domain"
)

func TestGetIdempotency_NoScope_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	rec, err := GetIdempotency(context.Background(), db, "u1", "   ", "k1", time.Now().UTC())
	if rec != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound) for empty scope, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID: "expired", UserID: "u1", Scope: "r1", Key: "k1", ResourceID: "rev1",
		Status: 201, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := GetIdempotency(context.Background(), db, "u1", "r1", "k1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired record, got %v", err)
	}
	if _, err := GetIdempotency(context.Background(), db, "u1", "r1", "other", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}
}

func TestCreateIdempotency_ThenGet_ThenDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "u1", "r1", "k1", "rev1", 201, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || rec.ResourceID != "rev1" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "u1", "r1", "k1", time.Now().UTC())
	if err != nil || got.ResourceID != "rev1" || got.Status != 201 {
		t.Fatalf("get: err=%v got=%+v", err, got)
	}

	if _, err := CreateIdempotency(ctx, db, "u1", "r1", "k1", "rev2", 201, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestPurgeIdempotency(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "r1", "k1", "rev1", 201, time.Millisecond); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "u1", "r1", "k2", "rev2", 201, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}

	n, err := PurgeIdempotency(ctx, db, time.Now().UTC().Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
}
