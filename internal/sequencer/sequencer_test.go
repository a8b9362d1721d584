package sequencer_test

import (
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/joestump/recipe-sync/internal/sequencer"
)

func TestIssue_MonotonicPerKey(t *testing.T) {
	s := sequencer.New()

	t1 := s.Issue("feed:main")
	t2 := s.Issue("feed:main")
	other := s.Issue("geo:abc")

	assert.Equal(t, t1, sequencer.Token(1))
	assert.Equal(t, t2, sequencer.Token(2))
	assert.Equal(t, other, sequencer.Token(1))
}

func TestIsCurrent_OnlyLatest(t *testing.T) {
	s := sequencer.New()

	t1 := s.Issue("follow:u1")
	assert.Equal(t, s.IsCurrent("follow:u1", t1), true)

	t2 := s.Issue("follow:u1")
	assert.Equal(t, s.IsCurrent("follow:u1", t1), false)
	assert.Equal(t, s.IsCurrent("follow:u1", t2), true)
	assert.Equal(t, s.Current("follow:u1"), t2)
}

func TestIsCurrent_UnknownKey(t *testing.T) {
	var s sequencer.Sequencer
	if s.IsCurrent("feed:main", 0) {
		t.Error("zero token must never be current")
	}
	if s.IsCurrent("feed:main", 1) {
		t.Error("token for a never-issued key must not be current")
	}
}

func TestIssue_Concurrent(t *testing.T) {
	s := sequencer.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Issue("categories")
		}()
	}
	wg.Wait()
	assert.Equal(t, s.Current("categories"), sequencer.Token(50))
}

func TestKind(t *testing.T) {
	cases := map[string]string{
		"feed:main":   "feed",
		"geo:1:2:3":   "geo",
		"categories":  "categories",
		"follow:abcd": "follow",
	}
	for key, want := range cases {
		if got := sequencer.Kind(key); got != want {
			t.Errorf("Kind(%q) = %q, want %q", key, got, want)
		}
	}
}
