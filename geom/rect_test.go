package geom

import "testing"

func TestRectClassify(t *testing.T) {
	bounds := NewRect(0, 0, 100, 100)

	cases := []struct {
		name string
		r    Rect[int]
		want Overlap
	}{
		{"inside", NewRect(10, 10, 50, 50), OverlapInside},
		{"outside", NewRect(200, 200, 300, 300), OverlapOutside},
		{"partial", NewRect(-10, -10, 10, 10), OverlapPartial},
		{"exact", NewRect(0, 0, 100, 100), OverlapInside},
		{"touching edge only", NewRect(100, 0, 200, 100), OverlapOutside},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.r.Classify(bounds); got != c.want {
				t.Errorf("Classify() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestRectUnion(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(5, 5, 20, 20)
	u := a.Union(b)
	want := NewRect(0, 0, 20, 20)
	if u != want {
		t.Errorf("Union() = %+v, want %+v", u, want)
	}

	// Union with an empty rect is a no-op.
	var empty Rect[int]
	if got := a.Union(empty); got != a {
		t.Errorf("Union(empty) = %+v, want %+v", got, a)
	}
	if got := empty.Union(a); got != a {
		t.Errorf("empty.Union(a) = %+v, want %+v", got, a)
	}
}

func TestRectIntersect(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(5, 5, 20, 20)
	got := a.Intersect(b)
	want := NewRect(5, 5, 10, 10)
	if got != want {
		t.Errorf("Intersect() = %+v, want %+v", got, want)
	}

	disjoint := NewRect(100, 100, 200, 200)
	if got := a.Intersect(disjoint); !got.Empty() {
		t.Errorf("Intersect(disjoint) = %+v, want empty", got)
	}
}

func TestRectWidthHeight(t *testing.T) {
	r := NewRect(10, 20, 110, 220)
	if r.Width() != 100 {
		t.Errorf("Width() = %v, want 100", r.Width())
	}
	if r.Height() != 200 {
		t.Errorf("Height() = %v, want 200", r.Height())
	}
}

func TestRectFloat(t *testing.T) {
	r := NewRect(0.0, 0.0, 1.5, 2.5)
	if r.Width() != 1.5 {
		t.Errorf("Width() = %v, want 1.5", r.Width())
	}
}
