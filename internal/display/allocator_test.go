package display

import "testing"

func TestAllocatorAcquireRelease(t *testing.T) {
	a := NewAllocator(100, 101)

	d1, err := a.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if d1 != ":100" {
		t.Fatalf("expected :100, got %s", d1)
	}

	d2, err := a.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if d2 != ":101" {
		t.Fatalf("expected :101, got %s", d2)
	}

	if _, err := a.Acquire(); err == nil {
		t.Fatal("expected error when pool exhausted")
	}

	a.Release(d1)
	d3, err := a.Acquire()
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if d3 != ":100" {
		t.Fatalf("expected released identifier :100 to be reused, got %s", d3)
	}
}

func TestAllocatorNeverDoubleAssigns(t *testing.T) {
	a := NewAllocator(1, 3)
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		d, err := a.Acquire()
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if seen[d] {
			t.Fatalf("display %s handed out twice", d)
		}
		seen[d] = true
	}
}

func TestAllocatorReleaseUnknownIsNoop(t *testing.T) {
	a := NewAllocator(1, 1)
	a.Release(":99")
	if a.InUse() != 0 {
		t.Fatalf("expected InUse 0, got %d", a.InUse())
	}
}
