package roster

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeReader struct {
	calls atomic.Int32
	fn    func(groupID string) ([]string, error)
}

func (f *fakeReader) ListGroupMembers(_ context.Context, groupID string) ([]string, error) {
	f.calls.Add(1)
	return f.fn(groupID)
}

func TestGetCachesRoster(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{fn: func(string) ([]string, error) { return []string{"Анна", "Борис"}, nil }}
	c := New(nil, reader)

	for i := 0; i < 3; i++ {
		names, err := c.Get(context.Background(), "12")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(names) != 2 || names[0] != "Анна" {
			t.Fatalf("unexpected roster %v", names)
		}
		names[0] = "mutated"
	}
	if got := reader.calls.Load(); got != 1 {
		t.Fatalf("expected 1 store call, got %d", got)
	}
}

func TestGetDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	fail := true
	reader := &fakeReader{fn: func(string) ([]string, error) {
		if fail {
			return nil, errors.New("timeout")
		}
		return []string{"Вера"}, nil
	}}
	c := New(nil, reader)

	if _, err := c.Get(context.Background(), "5"); err == nil {
		t.Fatal("expected error")
	}
	fail = false
	names, err := c.Get(context.Background(), "5")
	if err != nil || len(names) != 1 {
		t.Fatalf("retry: %v %v", names, err)
	}
}

func TestGetEmptyRoster(t *testing.T) {
	t.Parallel()

	c := New(nil, &fakeReader{fn: func(string) ([]string, error) { return nil, nil }})
	names, err := c.Get(context.Background(), "x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if names == nil || len(names) != 0 {
		t.Fatalf("expected empty non-nil roster, got %#v", names)
	}
}

func TestConcurrentMissesCollapse(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	reader := &fakeReader{fn: func(string) ([]string, error) {
		<-release
		return []string{"Анна"}, nil
	}}
	c := New(nil, reader)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(context.Background(), "12"); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	if got := reader.calls.Load(); got > 2 {
		t.Fatalf("expected collapsed store calls, got %d", got)
	}
}
