package optimizer

// history keeps the last m curvature pairs of a quasi-Newton method in a
// ring indexed by iter % m.
type history struct {
	m   int
	s   []DoubleVector
	y   []DoubleVector
	rho []float64 // 1/(s.y), zero for a pair without positive curvature
	sy  []float64
	yy  []float64
}

func newHistory(m int) *history {
	return &history{
		m:   m,
		s:   make([]DoubleVector, m),
		y:   make([]DoubleVector, m),
		rho: make([]float64, m),
		sy:  make([]float64, m),
		yy:  make([]float64, m),
	}
}

// record stores the pair of iteration iter.
func (h *history) record(iter int, s, y DoubleVector) {
	j := iter % h.m
	h.s[j] = s
	h.y[j] = y
	h.sy[j] = s.Dot(y)
	h.yy[j] = y.Dot(y)
	if h.sy[j] > 0 {
		h.rho[j] = 1 / h.sy[j]
	} else {
		h.rho[j] = 0
	}
}

// approximateHg returns the two-loop recursion approximation of H*g using
// the pairs recorded by iterations 0..iter-1. With no pairs it returns g.
func (h *history) approximateHg(iter int, g DoubleVector) DoubleVector {
	q := g.Clone()

	offset, bound := 0, iter
	if iter > h.m {
		offset, bound = iter-h.m, h.m
	}

	alpha := make([]float64, bound)
	for i := bound - 1; i >= 0; i-- {
		j := (i + offset) % h.m
		alpha[i] = h.rho[j] * h.s[j].Dot(q)
		q.AddScaled(-alpha[i], h.y[j])
	}

	if iter > 0 {
		j := (iter - 1) % h.m
		gamma := 1.0
		if h.sy[j] > 0 && h.yy[j] > 0 {
			gamma = h.sy[j] / h.yy[j]
		}
		for i := range q {
			q[i] *= gamma
		}
	}

	for i := 0; i < bound; i++ {
		j := (i + offset) % h.m
		beta := h.rho[j] * h.y[j].Dot(q)
		q.AddScaled(alpha[i]-beta, h.s[j])
	}
	return q
}
