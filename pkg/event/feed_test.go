package event

import (
	"sync"
	"testing"
)

func TestFeedDeliversInOrder(t *testing.T) {
	var f Feed[Change[int]]
	var got []string

	f.Subscribe(func(c Change[int]) { got = append(got, "first") })
	f.Subscribe(func(c Change[int]) {
		if c.Old != 1 || c.New != 2 {
			t.Errorf("payload = %+v, want {1 2}", c)
		}
		got = append(got, "second")
	})

	if n := f.Send(Change[int]{Old: 1, New: 2}); n != 2 {
		t.Errorf("Send delivered to %d subscribers, want 2", n)
	}
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("delivery order = %v", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	var f Feed[string]
	calls := 0
	sub := f.Subscribe(func(string) { calls++ })
	other := 0
	f.Subscribe(func(string) { other++ })

	f.Send("a")
	sub.Unsubscribe()
	sub.Unsubscribe()
	f.Send("b")

	if calls != 1 {
		t.Errorf("unsubscribed handler called %d times, want 1", calls)
	}
	if other != 2 {
		t.Errorf("remaining handler called %d times, want 2", other)
	}
	if f.Len() != 1 {
		t.Errorf("Len = %d, want 1", f.Len())
	}
}

func TestUnsubscribeDuringSend(t *testing.T) {
	var f Feed[int]
	var sub Subscription
	calls := 0
	sub = f.Subscribe(func(int) {
		calls++
		sub.Unsubscribe()
	})

	f.Send(1)
	f.Send(2)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestConcurrentSubscribeSend(t *testing.T) {
	var f Feed[int]
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s := f.Subscribe(func(int) {})
			s.Unsubscribe()
		}()
		go func(v int) {
			defer wg.Done()
			f.Send(v)
		}(i)
	}
	wg.Wait()
	if f.Len() != 0 {
		t.Errorf("Len = %d after all unsubscribes, want 0", f.Len())
	}
}
