package stellaecs

import "sort"

// EdgeKind discriminates the two edge flavors a Graph stores.
type EdgeKind string

const (
	EdgeDirected   EdgeKind = "directed"
	EdgeUndirected EdgeKind = "undirected"
)

// EdgeAttrType is the conventional attribute key naming an edge's role.
const EdgeAttrType = "type"

// EdgeTypeParent marks a directed parent->child containment edge, as laid
// down by LinkChild.
const EdgeTypeParent = "parentOf"

// Edge is one logical relationship between two entities. For undirected
// edges From/To are the canonical (lower, higher) endpoint order.
type Edge struct {
	From  Entity
	To    Entity
	Kind  EdgeKind
	Attrs map[string]any
}

// Connection is an edge as seen from one endpoint.
type Connection struct {
	Neighbor Entity
	Kind     EdgeKind
	Attrs    map[string]any
}

type edgeRecord struct {
	from, to Entity
	kind     EdgeKind
	attrs    map[string]any
}

// Graph stores directed and undirected relationships between entities,
// decoupled from component storage. An undirected edge is a single
// logical edge: both endpoints see the same record and the same attribute
// bag. At most one edge of each kind exists per entity pair; re-adding
// replaces the attributes.
type Graph struct {
	outgoing   map[Entity]map[Entity]*edgeRecord
	incoming   map[Entity]map[Entity]*edgeRecord
	undirected map[Entity]map[Entity]*edgeRecord
	edgeCount  int
}

func newGraph() *Graph {
	return &Graph{
		outgoing:   make(map[Entity]map[Entity]*edgeRecord),
		incoming:   make(map[Entity]map[Entity]*edgeRecord),
		undirected: make(map[Entity]map[Entity]*edgeRecord),
	}
}

// AddDirected inserts (or re-attributes) the ordered edge from -> to.
func (g *Graph) AddDirected(from, to Entity, attrs map[string]any) error {
	if from <= 0 {
		return InvalidEntityError{Entity: from}
	}
	if to <= 0 {
		return InvalidEntityError{Entity: to}
	}
	if existing, ok := g.outgoing[from][to]; ok {
		existing.attrs = attrs
		return nil
	}
	rec := &edgeRecord{from: from, to: to, kind: EdgeDirected, attrs: attrs}
	indexEdge(g.outgoing, from, to, rec)
	indexEdge(g.incoming, to, from, rec)
	g.edgeCount++
	return nil
}

// AddUndirected inserts (or re-attributes) the symmetric edge a <-> b. The
// edge is queryable from both endpoints with the same attributes no
// matter which endpoint initiated it.
func (g *Graph) AddUndirected(a, b Entity, attrs map[string]any) error {
	if a <= 0 {
		return InvalidEntityError{Entity: a}
	}
	if b <= 0 {
		return InvalidEntityError{Entity: b}
	}
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if existing, ok := g.undirected[lo][hi]; ok {
		existing.attrs = attrs
		return nil
	}
	rec := &edgeRecord{from: lo, to: hi, kind: EdgeUndirected, attrs: attrs}
	indexEdge(g.undirected, lo, hi, rec)
	if lo != hi {
		indexEdge(g.undirected, hi, lo, rec)
	}
	g.edgeCount++
	return nil
}

func indexEdge(index map[Entity]map[Entity]*edgeRecord, key, other Entity, rec *edgeRecord) {
	m, ok := index[key]
	if !ok {
		m = make(map[Entity]*edgeRecord)
		index[key] = m
	}
	m[other] = rec
}

// Outgoing returns the directed edges leaving e, sorted by neighbor id.
func (g *Graph) Outgoing(e Entity) []Connection {
	out := make([]Connection, 0, len(g.outgoing[e]))
	for to, rec := range g.outgoing[e] {
		out = append(out, Connection{Neighbor: to, Kind: EdgeDirected, Attrs: rec.attrs})
	}
	sortConnections(out)
	return out
}

// Connections returns every edge touching e: directed out, directed in,
// and undirected, sorted by neighbor id within each group.
func (g *Graph) Connections(e Entity) []Connection {
	var out []Connection
	for to, rec := range g.outgoing[e] {
		out = append(out, Connection{Neighbor: to, Kind: EdgeDirected, Attrs: rec.attrs})
	}
	sortConnections(out)
	n := len(out)
	for from, rec := range g.incoming[e] {
		out = append(out, Connection{Neighbor: from, Kind: EdgeDirected, Attrs: rec.attrs})
	}
	sortConnections(out[n:])
	n = len(out)
	for other, rec := range g.undirected[e] {
		out = append(out, Connection{Neighbor: other, Kind: EdgeUndirected, Attrs: rec.attrs})
	}
	sortConnections(out[n:])
	return out
}

// LinkChild records parent -> child containment as a directed edge marked
// with EdgeTypeParent.
func (g *Graph) LinkChild(parent, child Entity) error {
	return g.AddDirected(parent, child, map[string]any{EdgeAttrType: EdgeTypeParent})
}

// ChildrenOf returns the targets of parent's EdgeTypeParent edges, sorted
// by id.
func (g *Graph) ChildrenOf(parent Entity) []Entity {
	var children []Entity
	for to, rec := range g.outgoing[parent] {
		if rec.attrs[EdgeAttrType] == EdgeTypeParent {
			children = append(children, to)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
	return children
}

// ParentOf returns the source of child's incoming EdgeTypeParent edge, if
// any. With multiple such edges the lowest parent id wins.
func (g *Graph) ParentOf(child Entity) (Entity, bool) {
	parent, found := Entity(0), false
	for from, rec := range g.incoming[child] {
		if rec.attrs[EdgeAttrType] != EdgeTypeParent {
			continue
		}
		if !found || from < parent {
			parent, found = from, true
		}
	}
	return parent, found
}

// EdgeCount returns the number of logical edges in the graph.
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

// Edges returns every logical edge once, sorted by (from, to, kind).
// Undirected edges appear once in canonical endpoint order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edgeCount)
	for _, targets := range g.outgoing {
		for _, rec := range targets {
			out = append(out, Edge{From: rec.from, To: rec.to, Kind: rec.kind, Attrs: rec.attrs})
		}
	}
	for e, others := range g.undirected {
		for _, rec := range others {
			if rec.from == e {
				out = append(out, Edge{From: rec.from, To: rec.to, Kind: rec.kind, Attrs: rec.attrs})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// removeEntity drops every edge incident to e. Keeping the graph free of
// dangling endpoints is the graph's responsibility, not the caller's; the
// World invokes this on entity destruction.
func (g *Graph) removeEntity(e Entity) {
	for to := range g.outgoing[e] {
		delete(g.incoming[to], e)
		g.edgeCount--
	}
	delete(g.outgoing, e)

	for from := range g.incoming[e] {
		delete(g.outgoing[from], e)
		g.edgeCount--
	}
	delete(g.incoming, e)

	for other := range g.undirected[e] {
		if other != e {
			delete(g.undirected[other], e)
		}
		g.edgeCount--
	}
	delete(g.undirected, e)
}

func sortConnections(conns []Connection) {
	sort.Slice(conns, func(i, j int) bool { return conns[i].Neighbor < conns[j].Neighbor })
}
