package tax

// lotQueue is a growable ring buffer of lots, oldest at the head.
type lotQueue struct {
	buf  []Lot
	head int
	n    int
}

func (q *lotQueue) Len() int { return q.n }

func (q *lotQueue) push(l Lot) {
	if q.n == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.n)%len(q.buf)] = l
	q.n++
}

// at returns the i-th lot counted from the head. i must be < Len().
func (q *lotQueue) at(i int) *Lot {
	return &q.buf[(q.head+i)%len(q.buf)]
}

func (q *lotQueue) pop() Lot {
	l := q.buf[q.head]
	q.buf[q.head] = Lot{}
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	if q.n == 0 {
		q.head = 0
	}
	return l
}

func (q *lotQueue) grow() {
	size := 2 * len(q.buf)
	if size == 0 {
		size = 8
	}
	nb := make([]Lot, size)
	for i := 0; i < q.n; i++ {
		nb[i] = *q.at(i)
	}
	q.buf = nb
	q.head = 0
}

func (q *lotQueue) snapshot() []Lot {
	out := make([]Lot, q.n)
	for i := range out {
		out[i] = *q.at(i)
	}
	return out
}
