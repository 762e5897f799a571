package chain

// Arena is an append-only node history. Nodes are addressed by their arrival
// position and looked up by step number; a step number may appear more than
// once when a revision reuses it, in which case the latest arrival wins.
//
// Revisions are recorded as supersession links between positions. Superseded
// nodes stay in the history.
type Arena[N any] struct {
	nodes        []N
	numbers      []int
	byNumber     map[int][]int // step number -> positions in arrival order
	supersededBy map[int]int   // position -> position of the superseding node
}

// NewArena creates an empty arena.
func NewArena[N any]() *Arena[N] {
	return &Arena[N]{
		byNumber:     make(map[int][]int),
		supersededBy: make(map[int]int),
	}
}

// Append stores node under number and returns its position.
func (a *Arena[N]) Append(number int, node N) int {
	pos := len(a.nodes)
	a.nodes = append(a.nodes, node)
	a.numbers = append(a.numbers, number)
	a.byNumber[number] = append(a.byNumber[number], pos)
	return pos
}

// Len returns the number of stored nodes.
func (a *Arena[N]) Len() int {
	return len(a.nodes)
}

// Has reports whether any node carries number.
func (a *Arena[N]) Has(number int) bool {
	return len(a.byNumber[number]) > 0
}

// Lookup returns the position of the latest node carrying number.
func (a *Arena[N]) Lookup(number int) (int, bool) {
	positions := a.byNumber[number]
	if len(positions) == 0 {
		return 0, false
	}
	return positions[len(positions)-1], true
}

// At returns the node at pos.
func (a *Arena[N]) At(pos int) N {
	return a.nodes[pos]
}

// NumberAt returns the step number stored at pos.
func (a *Arena[N]) NumberAt(pos int) int {
	return a.numbers[pos]
}

// Set replaces the node at pos. Used to refresh derived fields.
func (a *Arena[N]) Set(pos int, node N) {
	a.nodes[pos] = node
}

// Supersede records that the node at by replaces the node at pos.
func (a *Arena[N]) Supersede(pos, by int) {
	a.supersededBy[pos] = by
}

// SupersededBy returns the position that directly replaced pos.
func (a *Arena[N]) SupersededBy(pos int) (int, bool) {
	by, ok := a.supersededBy[pos]
	return by, ok
}

// Effective follows supersession links from pos to the node currently
// standing in for it.
func (a *Arena[N]) Effective(pos int) int {
	seen := 0
	for {
		by, ok := a.supersededBy[pos]
		if !ok || seen > len(a.nodes) {
			return pos
		}
		pos = by
		seen++
	}
}

// Tail returns up to n of the most recent nodes, oldest first.
func (a *Arena[N]) Tail(n int) []N {
	if n <= 0 {
		return nil
	}
	start := len(a.nodes) - n
	if start < 0 {
		start = 0
	}
	out := make([]N, len(a.nodes)-start)
	copy(out, a.nodes[start:])
	return out
}

// All returns a copy of every node in arrival order.
func (a *Arena[N]) All() []N {
	out := make([]N, len(a.nodes))
	copy(out, a.nodes)
	return out
}
