package registry

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"quantum-nft-ledger/internal/domain"
)

func TestReserve_Duplicate(t *testing.T) {
	r := New()

	if err := r.Reserve("t1"); err != nil {
		t.Fatalf("first Reserve failed: %v", err)
	}
	if err := r.Reserve("t1"); !errors.Is(err, ErrDuplicateIdentifier) {
		t.Errorf("second Reserve = %v, want ErrDuplicateIdentifier", err)
	}
}

func TestReserve_EmptyIdentifier(t *testing.T) {
	r := New()
	if err := r.Reserve(""); !errors.Is(err, ErrInvalidMetadata) {
		t.Errorf("Reserve(\"\") = %v, want ErrInvalidMetadata", err)
	}
}

func TestRelease_FreesReservation(t *testing.T) {
	r := New()

	if err := r.Reserve("t1"); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	r.Release("t1")

	if err := r.Reserve("t1"); err != nil {
		t.Errorf("Reserve after Release failed: %v", err)
	}
}

func TestRelease_DoesNotTouchCommitted(t *testing.T) {
	r := New()

	if err := r.Reserve("t1"); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	r.Commit("t1", 1)
	r.Release("t1")

	if err := r.Reserve("t1"); !errors.Is(err, ErrDuplicateIdentifier) {
		t.Errorf("Reserve after Release of committed id = %v, want ErrDuplicateIdentifier", err)
	}
	if idx, ok := r.BlockIndex("t1"); !ok || idx != 1 {
		t.Errorf("BlockIndex = (%d, %v), want (1, true)", idx, ok)
	}
}

func TestBlockIndex_ReservedNotVisible(t *testing.T) {
	r := New()

	if err := r.Reserve("t1"); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if _, ok := r.BlockIndex("t1"); ok {
		t.Error("BlockIndex reported a reserved but uncommitted identifier")
	}
	if got := r.Size(); got != 0 {
		t.Errorf("Size() = %d, want 0", got)
	}
}

func TestReserve_ConcurrentSameID(t *testing.T) {
	r := New()
	const callers = 32

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Reserve("contested"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("%d concurrent reservations succeeded, want exactly 1", successes)
	}
}

func TestRebuild(t *testing.T) {
	r := New()
	r.Commit("stale", 99)

	blocks := []*domain.Block{
		{Index: 0},
		{Index: 1, Record: &domain.TokenRecord{TokenID: "t1"}},
		{Index: 2, Record: &domain.TokenRecord{TokenID: "t2"}},
	}
	r.Rebuild(blocks)

	if _, ok := r.BlockIndex("stale"); ok {
		t.Error("Rebuild kept an identifier not present in the chain")
	}
	if idx, ok := r.BlockIndex("t2"); !ok || idx != 2 {
		t.Errorf("BlockIndex(t2) = (%d, %v), want (2, true)", idx, ok)
	}
	if got := r.Size(); got != 2 {
		t.Errorf("Size() = %d, want 2", got)
	}
}

func TestValidateMetadata(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"object", `{"name":"Alice"}`, false},
		{"empty object", `{}`, false},
		{"missing", ``, false},
		{"string", `"not an object"`, true},
		{"array", `[1,2,3]`, true},
		{"number", `42`, true},
		{"null", `null`, true},
		{"malformed", `{"name":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ValidateMetadata(json.RawMessage(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMetadata) {
					t.Errorf("ValidateMetadata(%q) = %v, want ErrInvalidMetadata", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateMetadata(%q) failed: %v", tt.raw, err)
			}
			if parsed == nil {
				t.Error("ValidateMetadata returned nil map without error")
			}
		})
	}
}
