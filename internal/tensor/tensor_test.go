package tensor

import "testing"

func TestSizeIndex(t *testing.T) {
	s := Size{Depth: 6, Height: 24, Width: 24}

	if s.Len() != 3456 {
		t.Errorf("Len() = %d, want 3456", s.Len())
	}
	if s.Plane() != 576 {
		t.Errorf("Plane() = %d, want 576", s.Plane())
	}

	// Walking the shape in row-major order must visit every offset once.
	want := 0
	for d := 0; d < s.Depth; d++ {
		for i := 0; i < s.Height; i++ {
			for j := 0; j < s.Width; j++ {
				if got := s.Index(d, i, j); got != want {
					t.Fatalf("Index(%d, %d, %d) = %d, want %d", d, i, j, got, want)
				}
				want++
			}
		}
	}
}

func TestSizeCheckPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Check did not panic on a short buffer")
		}
	}()
	Size{Depth: 1, Height: 2, Width: 2}.Check("buf", make([]float32, 3))
}

func TestSizeString(t *testing.T) {
	if got := (Size{Depth: 6, Height: 6, Width: 6}).String(); got != "6x6x6" {
		t.Errorf("String() = %q, want %q", got, "6x6x6")
	}
}
