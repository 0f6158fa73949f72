package strategy

// combinations lazily yields every k-subset of n indices in lexicographic
// order: {0,1,2,3}, {0,1,2,4}, ... Callers stop early by not calling Next.
type combinations struct {
	n, k    int
	idx     []int
	started bool
	done    bool
}

func newCombinations(n, k int) *combinations {
	c := &combinations{n: n, k: k, idx: make([]int, k)}
	for i := range c.idx {
		c.idx[i] = i
	}
	if k > n || k < 0 {
		c.done = true
	}
	return c
}

// Next advances to the following combination and reports whether one exists.
func (c *combinations) Next() bool {
	if c.done {
		return false
	}
	if !c.started {
		c.started = true
		return true
	}
	i := c.k - 1
	for i >= 0 && c.idx[i] == c.n-c.k+i {
		i--
	}
	if i < 0 {
		c.done = true
		return false
	}
	c.idx[i]++
	for j := i + 1; j < c.k; j++ {
		c.idx[j] = c.idx[j-1] + 1
	}
	return true
}

// Indices returns the current combination. The slice is reused by Next.
func (c *combinations) Indices() []int {
	return c.idx
}
