package dataset

import (
	"errors"
	"testing"
)

func TestMapPreservesPartitions(t *testing.T) {
	d := NewPartitioned([]any{1, 2}, []any{3})

	out, err := d.Map(func(v any) (any, error) { return v.(int) * 10, nil })
	if err != nil {
		t.Fatalf("Map() error: %v", err)
	}

	counts := out.Counts()
	if len(counts) != 2 || counts[0] != 2 || counts[1] != 1 {
		t.Errorf("Counts() = %v, want [2 1]", counts)
	}

	got := out.Collect()
	want := []any{10, 20, 30}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Collect()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMapLeavesReceiverUntouched(t *testing.T) {
	d := New("a", "b")

	if _, err := d.Map(func(v any) (any, error) { return v.(string) + "!", nil }); err != nil {
		t.Fatalf("Map() error: %v", err)
	}

	got := d.Collect()
	if got[0] != "a" || got[1] != "b" {
		t.Errorf("receiver mutated: %v", got)
	}
}

func TestMapStopsAtFirstError(t *testing.T) {
	d := New(1, 2, 3)
	boom := errors.New("boom")

	calls := 0
	_, err := d.Map(func(v any) (any, error) {
		calls++
		if v.(int) == 2 {
			return nil, boom
		}
		return v, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Map() error = %v, want boom", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}

func TestLen(t *testing.T) {
	if got := NewPartitioned([]any{1}, []any{2, 3}).Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if got := New().Len(); got != 0 {
		t.Errorf("Len() of empty = %d, want 0", got)
	}
}
