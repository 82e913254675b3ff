package identity

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbourn/go-recipe-backend/internal/storage"
)

var idPattern = regexp.MustCompile(`^user_\d+_[0-9a-z]{9}$`)

func TestGet_CreatesOnceAndIsStable(t *testing.T) {
	s := storage.NewMemory()
	p := New(s)
	p.Now = func() time.Time { return time.UnixMilli(1700000000000) }

	id1, err := p.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !idPattern.MatchString(id1) {
		t.Fatalf("identifier %q does not match %s", id1, idPattern)
	}
	if id1[:19] != "user_1700000000000_" {
		t.Fatalf("identifier %q does not embed creation time", id1)
	}

	id2, _ := p.Get(context.Background())
	if id2 != id1 {
		t.Fatalf("identifier changed: %q -> %q", id1, id2)
	}

	// A fresh provider over the same storage sees the same identifier.
	id3, _ := New(s).Get(context.Background())
	if id3 != id1 {
		t.Fatalf("identifier not durable: %q vs %q", id3, id1)
	}
}

func TestGet_AcceptsBareLegacyValue(t *testing.T) {
	s := storage.NewMemory()
	_ = s.Set(context.Background(), storage.UserIdentifierKey, "user_1_abcdefghi")

	id, err := New(s).Get(context.Background())
	if err != nil || id != "user_1_abcdefghi" {
		t.Fatalf("Get = %q, %v", id, err)
	}
}

type countingStore struct {
	storage.Store
	sets atomic.Int32
}

func (c *countingStore) Set(ctx context.Context, key, value string) error {
	if key == storage.UserIdentifierKey {
		c.sets.Add(1)
	}
	return c.Store.Set(ctx, key, value)
}

func TestGet_ConcurrentFirstAccessCreatesOne(t *testing.T) {
	s := &countingStore{Store: storage.NewMemory()}
	p := New(s)

	const n = 32
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := p.Get(context.Background())
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("callers observed different identifiers: %q vs %q", id, ids[0])
		}
	}
	if got := s.sets.Load(); got != 1 {
		t.Fatalf("identifier written %d times; want 1", got)
	}
}
