package gam

// feature is the cubic B-spline basis of one input column on equally spaced
// knots over the training range.
type feature struct {
	lo, hi   float64
	step     float64
	segments int
	offset   int // first coefficient index in the model's beta
}

// size is the number of basis functions; a constant column has none.
func (f feature) size() int {
	if f.segments == 0 {
		return 0
	}
	return f.segments + 3
}

func newFeature(lo, hi float64, segments, offset int) feature {
	if !(hi > lo) || segments <= 0 {
		return feature{lo: lo, hi: hi, offset: offset}
	}
	return feature{
		lo:       lo,
		hi:       hi,
		step:     (hi - lo) / float64(segments),
		segments: segments,
		offset:   offset,
	}
}

// eval returns the index of the first non-zero basis function at v and the
// four non-zero values. Values outside the training range are clamped.
func (f feature) eval(v float64) (int, [4]float64) {
	if v < f.lo {
		v = f.lo
	}
	if v > f.hi {
		v = f.hi
	}

	t := (v - f.lo) / f.step
	s := int(t)
	if s >= f.segments {
		s = f.segments - 1
	}
	u := t - float64(s)
	u2 := u * u
	u3 := u2 * u

	return s, [4]float64{
		(1 - 3*u + 3*u2 - u3) / 6,
		(3*u3 - 6*u2 + 4) / 6,
		(-3*u3 + 3*u2 + 3*u + 1) / 6,
		u3 / 6,
	}
}

// secondDifference returns Dᵀ D for the q×q second order difference operator.
func secondDifference(q int) [][]float64 {
	p := make([][]float64, q)
	for i := range p {
		p[i] = make([]float64, q)
	}
	for r := 0; r+2 < q; r++ {
		d := [3]float64{1, -2, 1}
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				p[r+a][r+b] += d[a] * d[b]
			}
		}
	}
	return p
}
