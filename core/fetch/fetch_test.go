package fetch

import "testing"

func TestSequencer(t *testing.T) {
	var s Sequencer

	first := s.Next()
	if !s.Current(first) {
		t.Fatal("first ticket should be current")
	}

	second := s.Next()
	if s.Current(first) {
		t.Fatal("first ticket should be superseded")
	}
	if !s.Current(second) || second <= first {
		t.Fatalf("expected %d to be current and greater than %d", second, first)
	}
}
