package builder

import "strconv"

// DefaultMaxDepth bounds every expansion path.
const DefaultMaxDepth = 10

// DedupMode selects the key a synthesized reference class is shared under.
type DedupMode string

const (
	// DedupRefDepth shares a class between uses of the same reference at the
	// same depth. Cycles through non-component references run until the
	// depth ceiling.
	DedupRefDepth DedupMode = "ref-depth"
	// DedupRef shares one class per reference regardless of depth.
	DedupRef DedupMode = "ref"
)

// Guard is the traversal state of one build.
type Guard struct {
	maxDepth int
	mode     DedupMode

	seen     map[string]string // dedup key -> class id
	expanded map[string]bool   // component schema names
	stack    []string
}

// NewGuard returns a guard bounded by maxDepth. A non-positive depth means
// DefaultMaxDepth and an unknown mode means DedupRefDepth.
func NewGuard(maxDepth int, mode DedupMode) *Guard {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if mode != DedupRef {
		mode = DedupRefDepth
	}
	return &Guard{
		maxDepth: maxDepth,
		mode:     mode,
		seen:     make(map[string]string),
		expanded: make(map[string]bool),
	}
}

// MaxDepth returns the depth at which expansion stops.
func (g *Guard) MaxDepth() int {
	return g.maxDepth
}

// Mode returns the dedup key mode.
func (g *Guard) Mode() DedupMode {
	return g.mode
}

// Exceeded reports whether expansion must stop at depth.
func (g *Guard) Exceeded(depth int) bool {
	return depth >= g.maxDepth
}

func (g *Guard) key(ref string, depth int) string {
	if g.mode == DedupRef {
		return ref
	}
	return ref + "@" + strconv.Itoa(depth)
}

// Lookup returns the class already synthesized for ref at depth.
func (g *Guard) Lookup(ref string, depth int) (string, bool) {
	id, ok := g.seen[g.key(ref, depth)]
	return id, ok
}

// Record remembers classID as the class synthesized for ref at depth.
func (g *Guard) Record(ref string, depth int, classID string) {
	g.seen[g.key(ref, depth)] = classID
}

// MarkExpanded records a component schema and reports whether this is its
// first expansion.
func (g *Guard) MarkExpanded(name string) bool {
	if g.expanded[name] {
		return false
	}
	g.expanded[name] = true
	return true
}

// Push enters a class. The stack is only popped on success so that after a
// failure Current names the class being processed.
func (g *Guard) Push(classID string) {
	g.stack = append(g.stack, classID)
}

// Pop leaves the innermost class. It is a no-op on an empty stack.
func (g *Guard) Pop() {
	if len(g.stack) > 0 {
		g.stack = g.stack[:len(g.stack)-1]
	}
}

// Current returns the innermost class being expanded.
func (g *Guard) Current() string {
	if len(g.stack) == 0 {
		return ""
	}
	return g.stack[len(g.stack)-1]
}
