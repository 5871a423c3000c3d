package scene

// ExpansionState tracks which cluster is expanded and the pointer-enter
// recency used for z-ordering. The reference behavior is hover driven: at
// most one cluster is expanded at a time, and expanding B while A is open
// collapses A.
type ExpansionState struct {
	expanded   int64
	hasExpand  bool
	recency    []nodeKey // most recently entered last
	recencyPos map[nodeKey]int
}

// nodeKey keys recency by kind as well as id: backend cluster labels and
// image ids live in separate namespaces and may collide numerically.
type nodeKey struct {
	kind Kind
	id   int64
}

// NewExpansionState returns an empty expansion state.
func NewExpansionState() *ExpansionState {
	return &ExpansionState{recencyPos: make(map[nodeKey]int)}
}

// Expand marks the given cluster as the single expanded one and records the
// pointer-enter for z-ordering.
func (e *ExpansionState) Expand(clusterID int64) {
	e.expanded = clusterID
	e.hasExpand = true
	e.Touch(KindCluster, clusterID)
}

// Collapse clears the expansion if clusterID is the currently expanded
// cluster. Collapsing a cluster that is not expanded is a no-op.
func (e *ExpansionState) Collapse(clusterID int64) {
	if e.hasExpand && e.expanded == clusterID {
		e.hasExpand = false
	}
}

// CollapseAll clears any expansion (hover-leave of all clusters).
func (e *ExpansionState) CollapseAll() { e.hasExpand = false }

// Expanded returns the currently expanded cluster id, if any.
func (e *ExpansionState) Expanded() (int64, bool) { return e.expanded, e.hasExpand }

// IsExpanded reports whether the given cluster is the expanded one.
func (e *ExpansionState) IsExpanded(clusterID int64) bool {
	return e.hasExpand && e.expanded == clusterID
}

// Touch records a pointer-enter on an item or cluster without changing
// expansion. Draw order keeps the most recently entered node on top.
func (e *ExpansionState) Touch(kind Kind, id int64) {
	key := nodeKey{kind: kind, id: id}
	if pos, ok := e.recencyPos[key]; ok {
		// Already tracked: move to the back.
		e.recency = append(e.recency[:pos], e.recency[pos+1:]...)
		for i := pos; i < len(e.recency); i++ {
			e.recencyPos[e.recency[i]] = i
		}
	}
	e.recencyPos[key] = len(e.recency)
	e.recency = append(e.recency, key)
}

// Recency returns the z-order rank of a node: higher means entered more
// recently and drawn on top. Untracked nodes rank lowest.
func (e *ExpansionState) Recency(kind Kind, id int64) int {
	if pos, ok := e.recencyPos[nodeKey{kind: kind, id: id}]; ok {
		return pos + 1
	}
	return 0
}
