package events

import "testing"

func TestBroadcaster_SubscribePublishUnsubscribe(t *testing.T) {
	var b Broadcaster[FavoritesChanged]
	var got []string

	unsubA := b.Subscribe(func(e FavoritesChanged) { got = append(got, "a:"+e.RecipeID) })
	b.Subscribe(func(e FavoritesChanged) { got = append(got, "b:"+e.RecipeID) })

	b.Publish(FavoritesChanged{RecipeID: "1", Added: true})
	unsubA()
	unsubA()
	b.Publish(FavoritesChanged{RecipeID: "2"})

	want := []string{"a:1", "b:1", "b:2"}
	if len(got) != len(want) {
		t.Fatalf("got %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v; want %v", got, want)
		}
	}
	if b.Len() != 1 {
		t.Fatalf("Len = %d; want 1", b.Len())
	}
}

func TestBroadcaster_HandlerMayUnsubscribeDuringPublish(t *testing.T) {
	var b Broadcaster[int]
	calls := 0
	var unsub func()
	unsub = b.Subscribe(func(int) {
		calls++
		unsub()
	})
	b.Publish(1)
	b.Publish(2)
	if calls != 1 {
		t.Fatalf("calls = %d; want 1", calls)
	}
}
