package conversation

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestTracker_ConsumeOnce(t *testing.T) {
	tr := NewTracker()

	if tr.TryConsumeSearch("42") {
		t.Error("idle user should not consume a search")
	}

	tr.BeginSearch("42")
	if !tr.Pending("42") {
		t.Error("user should be pending after BeginSearch")
	}
	if !tr.TryConsumeSearch("42") {
		t.Error("first TryConsumeSearch should succeed")
	}
	if tr.TryConsumeSearch("42") {
		t.Error("second TryConsumeSearch should fail without a new BeginSearch")
	}
	if tr.Pending("42") {
		t.Error("user should be idle after consuming")
	}
}

func TestTracker_BeginSearchOverwrites(t *testing.T) {
	tr := NewTracker()
	tr.BeginSearch("1")
	tr.BeginSearch("1")
	if tr.Count() != 1 {
		t.Errorf("expected one pending user, got %d", tr.Count())
	}
	if !tr.TryConsumeSearch("1") || tr.TryConsumeSearch("1") {
		t.Error("repeated BeginSearch must not queue multiple prompts")
	}
}

func TestTracker_UsersAreIndependent(t *testing.T) {
	tr := NewTracker()
	tr.BeginSearch("a")
	if tr.TryConsumeSearch("b") {
		t.Error("user b should not consume user a's search")
	}
	if !tr.TryConsumeSearch("a") {
		t.Error("user a should still be pending")
	}
}

func TestTracker_ConcurrentConsume(t *testing.T) {
	tr := NewTracker()
	tr.BeginSearch("42")

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.TryConsumeSearch("42") {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one consumer, got %d", wins)
	}
}
