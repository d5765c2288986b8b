package sets

import "testing"

func TestSet(t *testing.T) {
	s := New("a", "b")
	s.Add("c")
	if !s.Has("a") || !s.Has("c") || s.Has("z") {
		t.Fatalf("unexpected membership: %v", s)
	}
	s.Delete("a")
	if s.Has("a") || s.Len() != 2 {
		t.Fatalf("delete failed: %v", s)
	}

	var empty Set[int]
	if empty.Has(1) || empty.Len() != 0 {
		t.Fatal("nil set should be empty")
	}
}
