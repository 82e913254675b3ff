package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/events"
	"github.com/tbourn/go-recipe-backend/internal/services"
	"github.com/tbourn/go-recipe-backend/internal/storage"
)

func TestListFavorites_ETagAndNotModified(t *testing.T) {
	favs := &stubFavs{list: []domain.Favorite{{RecipeID: "r1"}, {RecipeID: "r2"}}}
	mtime := time.Unix(1700000000, 42)
	h := newHandlers(Deps{Favorites: favs, Store: stubStat{info: storage.Info{Size: 77, UpdatedAt: mtime}}})
	r := newTestRouter(h)

	w := do(t, r, http.MethodGet, "/favorites", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	want := `W/"favorites:77:1700000000000000042"`
	if etag != want {
		t.Fatalf("ETag = %q; want %q", etag, want)
	}
	body := decode[ListFavoritesResponse](t, w)
	if body.Count != 2 || len(body.Favorites) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}

	w = do(t, r, http.MethodGet, "/favorites", nil, map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("304 must not carry a body")
	}
}

func TestListFavorites_ETagWhenNothingStored(t *testing.T) {
	h := newHandlers(Deps{Favorites: &stubFavs{}, Store: stubStat{err: storage.ErrNotFound}})
	w := do(t, newTestRouter(h), http.MethodGet, "/favorites", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if got := w.Header().Get("ETag"); got != `W/"favorites:0:0"` {
		t.Fatalf("ETag = %q", got)
	}
}

func TestListFavorites_RemoteUnavailable(t *testing.T) {
	h := newHandlers(Deps{Favorites: &stubFavs{listErr: services.ErrRemoteUnavailable}})
	w := do(t, newTestRouter(h), http.MethodGet, "/favorites", nil, nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	er := decode[ErrorResponse](t, w)
	if er.Code != ErrCodeRemoteUnavailable {
		t.Fatalf("code = %q", er.Code)
	}
}

func TestListFavorites_SearchClampsLimit(t *testing.T) {
	var gotQ string
	var gotK int
	favs := &stubFavs{search: func(q string, k int) []domain.Favorite {
		gotQ, gotK = q, k
		return []domain.Favorite{{RecipeID: "r9"}}
	}}
	h := newHandlers(Deps{Favorites: favs})
	w := do(t, newTestRouter(h), http.MethodGet, "/favorites?q=%20rendang%20&limit=500", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if gotQ != "rendang" || gotK != 100 {
		t.Fatalf("Search(%q, %d); want rendang, 100", gotQ, gotK)
	}
	if body := decode[ListFavoritesResponse](t, w); body.Count != 1 {
		t.Fatalf("count = %d", body.Count)
	}
}

func TestToggleFavorite(t *testing.T) {
	var gotSnap *domain.RecipeSnapshot
	favs := &stubFavs{toggle: func(id string, snap *domain.RecipeSnapshot) (services.ToggleResult, error) {
		if strings.TrimSpace(id) == "" {
			return services.ToggleResult{}, services.ErrInvalidRecipeID
		}
		gotSnap = snap
		return services.ToggleResult{
			Added:     true,
			Favorites: []domain.Favorite{{RecipeID: domain.FlexID(id)}},
			Sync:      syncDone(errBoom),
		}, nil
	}}
	r := newTestRouter(newHandlers(Deps{Favorites: favs}))

	t.Run("with snapshot, no wait", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/favorites/r1/toggle", map[string]any{"name": "Rendang", "category": "Padang"}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
		body := decode[ToggleFavoriteResponse](t, w)
		if !body.Added || body.RecipeID != "r1" || body.Sync != nil {
			t.Fatalf("unexpected body: %+v", body)
		}
		if gotSnap == nil || gotSnap.Name != "Rendang" || gotSnap.Category != "Padang" {
			t.Fatalf("snapshot not passed: %+v", gotSnap)
		}
	})

	t.Run("empty body, wait for sync", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/favorites/r2/toggle?wait_sync=true", nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d", w.Code)
		}
		if gotSnap != nil {
			t.Fatalf("expected nil snapshot for empty body")
		}
		body := decode[ToggleFavoriteResponse](t, w)
		if body.Sync == nil || !body.Sync.Attempted || body.Sync.OK || body.Sync.Error != "boom" {
			t.Fatalf("unexpected sync status: %+v", body.Sync)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/favorites/r3/toggle", "{nope", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("blank id", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/favorites/%20/toggle", nil, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if er := decode[ErrorResponse](t, w); er.Code != ErrCodeBadRequest {
			t.Fatalf("code = %q", er.Code)
		}
	})
}

func TestGetFavoriteStatus(t *testing.T) {
	favs := &stubFavs{favorited: map[string]bool{"r1": true}}
	r := newTestRouter(newHandlers(Deps{Favorites: favs}))

	for id, want := range map[string]bool{"r1": true, "r2": false} {
		w := do(t, r, http.MethodGet, "/favorites/"+id, nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d", w.Code)
		}
		body := decode[FavoriteStatusResponse](t, w)
		if body.RecipeID != id || body.Favorited != want {
			t.Fatalf("%s: %+v", id, body)
		}
	}
}

func TestFavoriteEvents_StreamsOwnChanges(t *testing.T) {
	favs := &stubFavs{subd: make(chan struct{})}
	srv := httptest.NewServer(newTestRouter(newHandlers(Deps{Favorites: favs})))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/favorites/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content-type = %q", ct)
	}

	select {
	case <-favs.subd:
	case <-ctx.Done():
		t.Fatalf("handler never subscribed")
	}
	favs.publish(events.FavoritesChanged{UserID: "someone_else", RecipeID: "x"})
	favs.publish(events.FavoritesChanged{UserID: testUID, RecipeID: "r7", Added: true})

	sc := bufio.NewScanner(resp.Body)
	var sawEvent bool
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event:") && strings.Contains(line, "favorites") {
			sawEvent = true
			continue
		}
		if sawEvent && strings.HasPrefix(line, "data:") {
			if strings.Contains(line, `"x"`) {
				t.Fatalf("received another user's change: %s", line)
			}
			if !strings.Contains(line, `"recipe_id":"r7"`) {
				t.Fatalf("unexpected data line: %s", line)
			}
			return
		}
	}
	t.Fatalf("stream ended without a favorites event: %v", sc.Err())
}
