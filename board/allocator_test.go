package board

import (
	"context"
	"errors"
	"testing"

	"prism-board/domain"
)

type stubPositions struct {
	max int
	ok  bool
	err error
}

func (s stubPositions) MaxPosition(context.Context, string, domain.Status) (int, bool, error) {
	return s.max, s.ok, s.err
}

func TestAllocateInitialPosition(t *testing.T) {
	tests := []struct {
		name string
		r    stubPositions
		want int
	}{
		{name: "empty", r: stubPositions{}, want: 0},
		{name: "zero", r: stubPositions{max: 0, ok: true}, want: 1},
		{name: "gapped", r: stubPositions{max: 41, ok: true}, want: 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AllocateInitialPosition(context.Background(), tt.r, "p", domain.StatusTodo)
			if err != nil {
				t.Fatalf("allocate: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}

	boom := errors.New("boom")
	if _, err := AllocateInitialPosition(context.Background(), stubPositions{err: boom}, "p", domain.StatusTodo); !errors.Is(err, boom) {
		t.Fatalf("expected error to propagate, got %v", err)
	}
}

func TestPartitionLocksAreScoped(t *testing.T) {
	locks := newPartitionLocks()
	unlockTodo := locks.lock("p", domain.StatusTodo)

	done := make(chan struct{})
	go func() {
		unlock := locks.lock("p", domain.StatusDone)
		unlock()
		close(done)
	}()
	<-done

	if locks.size() != 1 {
		t.Fatalf("expected one held lock, got %d", locks.size())
	}
	unlockTodo()
	if locks.size() != 0 {
		t.Fatalf("expected lock table to be empty, got %d", locks.size())
	}
}
