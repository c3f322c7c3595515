package domain

import (
	"sort"

	"github.com/google/uuid"
)

// RelationKind classifies a directed edge between two beliefs.
type RelationKind string

const (
	RelationSupports    RelationKind = "supports"
	RelationContradicts RelationKind = "contradicts"
	RelationThematic    RelationKind = "thematic"
	RelationDerivedFrom RelationKind = "derived_from"
	RelationSupersedes  RelationKind = "supersedes"
)

func ValidRelationKind(r string) bool {
	switch RelationKind(r) {
	case RelationSupports, RelationContradicts, RelationThematic,
		RelationDerivedFrom, RelationSupersedes:
		return true
	}
	return false
}

// EdgeKey identifies the ordered (source, target) pair an edge belongs
// to. At most one edge exists per key; re-discovery overwrites.
type EdgeKey struct {
	Source uuid.UUID
	Target uuid.UUID
}

// BeliefEdge is a discovered relationship between two beliefs.
type BeliefEdge struct {
	Source   uuid.UUID    `json:"source"`
	Target   uuid.UUID    `json:"target"`
	Kind     RelationKind `json:"kind"`
	Strength float64      `json:"strength"` // [0,1]
}

// BeliefNetwork is an explicit node/edge index: an arena of beliefs
// keyed by id and adjacency keyed by ordered id pairs. The network owns
// its beliefs; callers get copies, never live nodes.
type BeliefNetwork struct {
	Nodes map[uuid.UUID]*Belief
	Edges map[EdgeKey]BeliefEdge
}

func NewBeliefNetwork() *BeliefNetwork {
	return &BeliefNetwork{
		Nodes: make(map[uuid.UUID]*Belief),
		Edges: make(map[EdgeKey]BeliefEdge),
	}
}

// Clone deep-copies the network so graph operations can be pure.
func (n *BeliefNetwork) Clone() *BeliefNetwork {
	c := &BeliefNetwork{
		Nodes: make(map[uuid.UUID]*Belief, len(n.Nodes)),
		Edges: make(map[EdgeKey]BeliefEdge, len(n.Edges)),
	}
	for id, b := range n.Nodes {
		c.Nodes[id] = b.Clone()
	}
	for k, e := range n.Edges {
		c.Edges[k] = e
	}
	return c
}

// SetEdge inserts or overwrites the edge for its ordered pair.
func (n *BeliefNetwork) SetEdge(e BeliefEdge) {
	n.Edges[EdgeKey{Source: e.Source, Target: e.Target}] = e
}

// OutgoingEdges returns the edges leaving a node, sorted by target id
// so traversal order is deterministic.
func (n *BeliefNetwork) OutgoingEdges(source uuid.UUID) []BeliefEdge {
	var out []BeliefEdge
	for k, e := range n.Edges {
		if k.Source == source {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Target.String() < out[j].Target.String()
	})
	return out
}

// ActiveBeliefs returns non-superseded beliefs sorted by id.
func (n *BeliefNetwork) ActiveBeliefs() []*Belief {
	var out []*Belief
	for _, b := range n.Nodes {
		if !b.Superseded {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
