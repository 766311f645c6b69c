package oir

// CFG is the per-function control-flow view used by the passes:
// predecessor lists, a reverse-postorder, immediate dominators, and
// dominance frontiers. Block ids are module-level; maps key on them.
type CFG struct {
	Func *Function

	Preds map[BlockID][]BlockID
	Succs map[BlockID][]BlockID

	// reverse postorder over reachable blocks, entry first
	RPO []BlockID

	// immediate dominator per reachable block (entry maps to itself)
	IDom map[BlockID]BlockID

	// dominance frontier per reachable block
	Frontier map[BlockID][]BlockID

	rpoIndex map[BlockID]int
}

// BuildCFG computes predecessors, reverse postorder, dominators
// (Cooper-Harvey-Kennedy iterative scheme), and dominance frontiers for
// one function.
func BuildCFG(m *Module, f *Function) *CFG {
	c := &CFG{
		Func:     f,
		Preds:    make(map[BlockID][]BlockID),
		Succs:    make(map[BlockID][]BlockID),
		IDom:     make(map[BlockID]BlockID),
		Frontier: make(map[BlockID][]BlockID),
		rpoIndex: make(map[BlockID]int),
	}

	inFunc := make(map[BlockID]bool, len(f.Blocks))
	for _, bid := range f.Blocks {
		inFunc[bid] = true
	}

	for _, bid := range f.Blocks {
		b := &m.Blocks[bid]
		if !b.HasTerm {
			continue
		}
		for _, s := range b.Term.Successors() {
			if !inFunc[s] {
				continue
			}
			c.Succs[bid] = append(c.Succs[bid], s)
			c.Preds[s] = append(c.Preds[s], bid)
		}
	}

	// postorder DFS from entry
	visited := make(map[BlockID]bool)
	var post []BlockID
	var dfs func(BlockID)
	dfs = func(bid BlockID) {
		visited[bid] = true
		for _, s := range c.Succs[bid] {
			if !visited[s] {
				dfs(s)
			}
		}
		post = append(post, bid)
	}
	if m.ValidBlock(f.Entry) && inFunc[f.Entry] {
		dfs(f.Entry)
	}

	c.RPO = make([]BlockID, len(post))
	for i, bid := range post {
		c.RPO[len(post)-1-i] = bid
	}
	for i, bid := range c.RPO {
		c.rpoIndex[bid] = i
	}

	c.computeDominators(f.Entry)
	c.computeFrontiers()
	return c
}

// Reachable reports whether the block was reached from the entry.
func (c *CFG) Reachable(bid BlockID) bool {
	_, ok := c.rpoIndex[bid]
	return ok
}

func (c *CFG) computeDominators(entry BlockID) {
	if len(c.RPO) == 0 {
		return
	}
	c.IDom[entry] = entry

	intersect := func(a, b BlockID) BlockID {
		for a != b {
			for c.rpoIndex[a] > c.rpoIndex[b] {
				a = c.IDom[a]
			}
			for c.rpoIndex[b] > c.rpoIndex[a] {
				b = c.IDom[b]
			}
		}
		return a
	}

	changed := true
	for changed {
		changed = false
		for _, bid := range c.RPO {
			if bid == entry {
				continue
			}
			var newIdom BlockID
			found := false
			for _, p := range c.Preds[bid] {
				if _, processed := c.IDom[p]; !processed || !c.Reachable(p) {
					continue
				}
				if !found {
					newIdom = p
					found = true
					continue
				}
				newIdom = intersect(newIdom, p)
			}
			if !found {
				continue
			}
			if cur, ok := c.IDom[bid]; !ok || cur != newIdom {
				c.IDom[bid] = newIdom
				changed = true
			}
		}
	}
}

func (c *CFG) computeFrontiers() {
	for _, bid := range c.RPO {
		preds := c.Preds[bid]
		if len(preds) < 2 {
			continue
		}
		idom, ok := c.IDom[bid]
		if !ok {
			continue
		}
		for _, p := range preds {
			if !c.Reachable(p) {
				continue
			}
			runner := p
			for runner != idom {
				if !contains(c.Frontier[runner], bid) {
					c.Frontier[runner] = append(c.Frontier[runner], bid)
				}
				next, ok := c.IDom[runner]
				if !ok || next == runner {
					break
				}
				runner = next
			}
		}
	}
}

func contains(s []BlockID, v BlockID) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Dominates reports whether a dominates b (reflexive).
func (c *CFG) Dominates(a, b BlockID) bool {
	if !c.Reachable(a) || !c.Reachable(b) {
		return false
	}
	for {
		if a == b {
			return true
		}
		idom, ok := c.IDom[b]
		if !ok || idom == b {
			return a == b
		}
		b = idom
	}
}

// DomChildren returns the dominator-tree children of each block, in
// deterministic RPO order.
func (c *CFG) DomChildren() map[BlockID][]BlockID {
	out := make(map[BlockID][]BlockID)
	for _, bid := range c.RPO {
		if bid == c.Func.Entry {
			continue
		}
		idom, ok := c.IDom[bid]
		if !ok || idom == bid {
			continue
		}
		out[idom] = append(out[idom], bid)
	}
	return out
}
