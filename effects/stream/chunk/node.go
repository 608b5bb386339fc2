package chunk

// node is the sealed representation of a chunk. All nodes are non-empty;
// the empty chunk has a nil node.
type node[A any] interface {
	length() int
	get(i int) A
	depth() int
	// each yields elements in order and reports whether iteration finished
	each(yield func(A) bool) bool
}

type singleNode[A any] struct {
	a A
}

func (n singleNode[A]) length() int { return 1 }
func (n singleNode[A]) get(int) A   { return n.a }
func (n singleNode[A]) depth() int  { return 0 }
func (n singleNode[A]) each(yield func(A) bool) bool {
	return yield(n.a)
}

type arrayNode[A any] struct {
	xs []A
}

func (n arrayNode[A]) length() int { return len(n.xs) }
func (n arrayNode[A]) get(i int) A { return n.xs[i] }
func (n arrayNode[A]) depth() int  { return 0 }
func (n arrayNode[A]) each(yield func(A) bool) bool {
	for _, x := range n.xs {
		if !yield(x) {
			return false
		}
	}
	return true
}

type concatNode[A any] struct {
	left, right node[A]
	n, d        int
}

func (n concatNode[A]) length() int { return n.n }
func (n concatNode[A]) depth() int  { return n.d }
func (n concatNode[A]) get(i int) A {
	if l := n.left.length(); i >= l {
		return n.right.get(i - l)
	}
	return n.left.get(i)
}
func (n concatNode[A]) each(yield func(A) bool) bool {
	return n.left.each(yield) && n.right.each(yield)
}

// viewNode is a window over an external buffer.
type viewNode[A any] struct {
	under  Indexed[A]
	offset int
	n      int
}

func (n viewNode[A]) length() int { return n.n }
func (n viewNode[A]) get(i int) A { return n.under.At(n.offset + i) }
func (n viewNode[A]) depth() int  { return 0 }
func (n viewNode[A]) each(yield func(A) bool) bool {
	for i := 0; i < n.n; i++ {
		if !yield(n.under.At(n.offset + i)) {
			return false
		}
	}
	return true
}

// slice returns the [from, to) window of n, or nil when it is empty.
func slice[A any](n node[A], from, to int) node[A] {
	if from >= to {
		return nil
	}
	if from == 0 && to == n.length() {
		return n
	}
	switch n := n.(type) {
	case arrayNode[A]:
		return arrayNode[A]{xs: n.xs[from:to:to]}
	case viewNode[A]:
		return viewNode[A]{under: n.under, offset: n.offset + from, n: to - from}
	case concatNode[A]:
		l := n.left.length()
		switch {
		case to <= l:
			return slice(n.left, from, to)
		case from >= l:
			return slice(n.right, from-l, to-l)
		default:
			return concat(slice(n.left, from, l), slice(n.right, 0, to-l))
		}
	default:
		// single nodes are only sliced to themselves or to nothing
		return n
	}
}

// concat joins l and r into a tree where the depths of every node's
// children differ by at most one, so appending stays logarithmic. Adjacent
// leaves that together hold at most leafSize elements are copied into one.
func concat[A any](l, r node[A]) node[A] {
	switch {
	case l == nil:
		return r
	case r == nil:
		return l
	}
	if l.depth() == 0 && r.depth() == 0 && l.length()+r.length() <= leafSize {
		return flatten(join(l, r))
	}

	diff := r.depth() - l.depth()
	switch {
	case diff >= -1 && diff <= 1:
		return join(l, r)
	case diff < -1:
		// l is deeper, so it is a concat node
		ln := l.(concatNode[A])
		if ln.left.depth() >= ln.right.depth() {
			return join(ln.left, concat(ln.right, r))
		}
		lr := ln.right.(concatNode[A])
		rr := concat(lr.right, r)
		if rr.depth() == l.depth()-3 {
			return join(ln.left, join(lr.left, rr))
		}
		return join(join(ln.left, lr.left), rr)
	default:
		rn := r.(concatNode[A])
		if rn.right.depth() >= rn.left.depth() {
			return join(concat(l, rn.left), rn.right)
		}
		rl := rn.left.(concatNode[A])
		ll := concat(l, rl.left)
		if ll.depth() == r.depth()-3 {
			return join(join(ll, rl.right), rn.right)
		}
		return join(ll, join(rl.right, rn.right))
	}
}

func join[A any](l, r node[A]) node[A] {
	return concatNode[A]{left: l, right: r, n: l.length() + r.length(), d: max(l.depth(), r.depth()) + 1}
}

func flatten[A any](n node[A]) node[A] {
	xs := make([]A, 0, n.length())
	n.each(func(a A) bool {
		xs = append(xs, a)
		return true
	})
	return arrayNode[A]{xs: xs}
}
