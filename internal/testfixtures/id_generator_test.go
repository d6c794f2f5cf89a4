package testfixtures

import (
	"sync"
	"testing"
)

func TestIDGeneratorSequence(t *testing.T) {
	gen := NewIDGenerator("shift")
	if first, second := gen.Next(), gen.Next(); first != "shift-1" || second != "shift-2" {
		t.Fatalf("expected shift-1 and shift-2, got %q, %q", first, second)
	}
	if gen.Issued() != 2 {
		t.Fatalf("expected two issued identifiers, got %d", gen.Issued())
	}
	if got := NewIDGenerator("").Next(); got != "id-1" {
		t.Fatalf("expected default prefix, got %q", got)
	}
}

func TestIDGeneratorConcurrentUse(t *testing.T) {
	gen := NewIDGenerator("entry")
	next := gen.NextFunc()

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				id := next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 200 || gen.Issued() != 200 {
		t.Fatalf("expected 200 distinct identifiers, got %d (issued %d)", len(seen), gen.Issued())
	}
}

func TestIDGeneratorNilFunc(t *testing.T) {
	var gen *IDGenerator
	if got := gen.NextFunc()(); got != "" {
		t.Fatalf("expected empty identifier from nil generator, got %q", got)
	}
}
