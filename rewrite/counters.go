package rewrite

import "strconv"

// Counters hands out disambiguation indices for one run. The zero value is
// not usable; create one with NewCounters.
type Counters struct {
	counts map[string]int
	taken  map[string]bool // declared in the initializer or already issued
}

// NewCounters seeds a table from the attributes already declared in the
// initializer. Every declared name starts at 1, so a declared relu makes
// the first synthesized relu take index 2.
func NewCounters(attrs map[string]bool) *Counters {
	c := &Counters{
		counts: make(map[string]int, len(attrs)),
		taken:  make(map[string]bool, len(attrs)),
	}
	for name := range attrs {
		c.taken[name] = true
		c.counts[name] = 1
	}
	return c
}

// Current returns the last index handed out (or seeded) for op, 0 if none.
func (c *Counters) Current(op string) int {
	return c.counts[op]
}

// Next increments the index for op and returns it. Indices whose name is
// declared or was issued for another operation (relu6 + 1 and relu + 61
// both spell relu61) are skipped.
func (c *Counters) Next(op string) int {
	n := c.counts[op]
	for {
		n++
		if !c.taken[IndexedName(op, n)] {
			break
		}
	}
	c.counts[op] = n
	c.taken[IndexedName(op, n)] = true
	return n
}

// IndexedName joins an operation name and its index: relu, 1 -> relu1.
func IndexedName(op string, index int) string {
	return op + strconv.Itoa(index)
}
