package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestIdempotency_Migration_Indexes_AndInsert(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	m := db.Migrator()
	if !m.HasTable(&Idempotency{}) {
		t.Fatalf("expected table %q to exist", Idempotency{}.TableName())
	}
	if !m.HasIndex(&Idempotency{}, "ux_user_scope_key") {
		t.Fatalf("expected composite index ux_user_scope_key to exist")
	}

	now := time.Now().UTC()
	rec := &Idempotency{
		ID:         "id-1",
		UserID:     "u1",
		Scope:      "r1",
		Key:        "k1",
		ResourceID: "rev1",
		Status:     201,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert valid: %v", err)
	}

	var got Idempotency
	if err := db.First(&got, "id = ?", "id-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.UserID != "u1" || got.Scope != "r1" || got.Key != "k1" || got.ResourceID != "rev1" || got.Status != 201 {
		t.Fatalf("unexpected row: %+v", got)
	}

	// (user_id, scope, key) must be unique
	dup := &Idempotency{
		ID: "id-2", UserID: "u1", Scope: "r1", Key: "k1", ResourceID: "rev2",
		Status: 201, CreatedAt: now, ExpiresAt: now.Add(2 * time.Hour),
	}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected UNIQUE constraint violation on (user_id, scope, key)")
	}

	// Same key in another scope is fine.
	other := &Idempotency{
		ID: "id-3", UserID: "u1", Scope: "r2", Key: "k1", ResourceID: "rev3",
		Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("insert other scope: %v", err)
	}
}

func TestKVEntry_TableName_AndMigration(t *testing.T) {
	if (KVEntry{}).TableName() != "kv_entries" {
		t.Fatalf("KVEntry.TableName() = %q; want %q", (KVEntry{}).TableName(), "kv_entries")
	}
	db := newTestDB(t)
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := db.Create(&KVEntry{Key: "user_identifier", Value: `"user_1"`}).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Create(&KVEntry{Key: "user_identifier", Value: `"user_2"`}).Error; err == nil {
		t.Fatalf("expected primary key violation on duplicate key")
	}
}
