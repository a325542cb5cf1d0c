package graph

import (
	"fmt"

	"github.com/bargom/pointyflow/internal/ast"
)

// Option configures a Builder.
type Option func(*config)

type config struct {
	known func(name string) bool
}

// WithTaskValidator makes Build reject any task name for which known
// returns false, raising UnknownTaskError.
func WithTaskValidator(known func(name string) bool) Option {
	return func(c *config) { c.known = known }
}

// Builder lowers a parsed ast.Expr into a Graph.
type Builder struct {
	cfg    config
	graph  *Graph
	counts map[string]int
}

// NewBuilder constructs a Builder with the given options applied.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{counts: map[string]int{}}
	for _, opt := range opts {
		opt(&b.cfg)
	}
	return b
}

// Build lowers expr into a finalized Graph.
func (b *Builder) Build(expr ast.Expr) (*Graph, error) {
	b.graph = newGraph()
	b.counts = map[string]int{}

	entries, _, err := b.lower(expr)
	if err != nil {
		return nil, err
	}
	_ = entries

	b.graph.finalize()
	propagateReplicas(b.graph)
	return b.graph, nil
}

func (b *Builder) nextID(name string) string {
	n := b.counts[name]
	b.counts[name]++
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s#%d", name, n+1)
}

func (b *Builder) newTaskNode(name string) (*Node, error) {
	if b.cfg.known != nil && !b.cfg.known(name) {
		return nil, &UnknownTaskError{Name: name}
	}
	n := &Node{
		ID:           b.nextID(name),
		TaskName:     name,
		RetryBudget:  0,
		ReplicaCount: 1,
	}
	b.graph.Nodes[n.ID] = n
	return n, nil
}

// lower recursively builds expr, returning the entry and exit node IDs
// of the subgraph it produced.
func (b *Builder) lower(expr ast.Expr) (entries, exits []string, err error) {
	switch e := expr.(type) {
	case *ast.TaskRef:
		n, err := b.newTaskNode(e.Name)
		if err != nil {
			return nil, nil, err
		}
		return []string{n.ID}, []string{n.ID}, nil

	case *ast.Seq:
		lEntries, lExits, err := b.lower(e.Left)
		if err != nil {
			return nil, nil, err
		}
		rEntries, rExits, err := b.lower(e.Right)
		if err != nil {
			return nil, nil, err
		}
		for _, from := range lExits {
			for _, to := range rEntries {
				b.graph.addEdge(from, to, Seq)
			}
		}
		return lEntries, rExits, nil

	case *ast.Broadcast:
		lEntries, lExits, err := b.lower(e.Left)
		if err != nil {
			return nil, nil, err
		}
		rEntries, rExits, err := b.lower(e.Right)
		if err != nil {
			return nil, nil, err
		}
		for _, from := range lExits {
			for _, to := range rEntries {
				b.graph.addEdge(from, to, Broadcast)
			}
		}
		return lEntries, rExits, nil

	case *ast.Parallel:
		lEntries, lExits, err := b.lower(e.Left)
		if err != nil {
			return nil, nil, err
		}
		rEntries, rExits, err := b.lower(e.Right)
		if err != nil {
			return nil, nil, err
		}
		return append(lEntries, rEntries...), append(lExits, rExits...), nil

	case *ast.Retry:
		entries, exits, err := b.lower(e.Task)
		if err != nil {
			return nil, nil, err
		}
		node, err := b.singleNode(entries, "retry")
		if err != nil {
			return nil, nil, err
		}
		if e.Factor < 0 {
			return nil, nil, shapeErrorf("retry budget must be >= 0, got %d", e.Factor)
		}
		node.RetryBudget = e.Factor
		return entries, exits, nil

	case *ast.RetryInverse:
		entries, exits, err := b.lower(e.Task)
		if err != nil {
			return nil, nil, err
		}
		node, err := b.singleNode(entries, "retry")
		if err != nil {
			return nil, nil, err
		}
		if e.Factor < 0 {
			return nil, nil, shapeErrorf("retry budget must be >= 0, got %d", e.Factor)
		}
		node.RetryBudget = e.Factor
		return entries, exits, nil

	case *ast.Descriptor:
		entries, exits, err := b.lower(e.Child)
		if err != nil {
			return nil, nil, err
		}
		node, err := b.singleNode(entries, "descriptor")
		if err != nil {
			return nil, nil, err
		}
		if e.N < 1 {
			return nil, nil, shapeErrorf("replica count must be >= 1, got %d", e.N)
		}
		node.ReplicaCount = e.N
		return entries, exits, nil

	case *ast.Call:
		selEntries, _, err := b.lower(e.Task)
		if err != nil {
			return nil, nil, err
		}
		selector, err := b.singleNode(selEntries, "call target")
		if err != nil {
			return nil, nil, err
		}
		selector.Conditional = true

		var exits []string
		for _, member := range e.Group {
			mEntries, mExits, err := b.lower(member)
			if err != nil {
				return nil, nil, err
			}
			for _, centry := range mEntries {
				selector.ConditionalChildren = append(selector.ConditionalChildren, centry)
				b.graph.addEdge(selector.ID, centry, Conditional)
			}
			exits = append(exits, mExits...)
		}
		return selEntries, exits, nil

	default:
		return nil, nil, shapeErrorf("unsupported expression type %T", expr)
	}
}

func (b *Builder) singleNode(entries []string, construct string) (*Node, error) {
	if len(entries) != 1 {
		return nil, shapeErrorf("%s requires a single-node operand, got %d", construct, len(entries))
	}
	return b.graph.Nodes[entries[0]], nil
}

// propagateReplicas computes each node's effective replica count as its
// own declared count times the largest effective count among its
// predecessors, visited in topological order. This is how a Descriptor
// upstream (e.g. "2 |-> producer") drives per-replica fan-out all the
// way down a chain without the builder ever materializing duplicate IR
// nodes — see DESIGN.md for the worked derivation.
func propagateReplicas(g *Graph) {
	declared := make(map[string]int, len(g.Nodes))
	indegree := make(map[string]int, len(g.Nodes))
	for id, n := range g.Nodes {
		declared[id] = n.ReplicaCount
		indegree[id] = len(n.Incoming)
	}

	queue := append([]string(nil), g.Entries...)
	visited := make(map[string]bool, len(g.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		n := g.Nodes[id]
		maxPred := 1
		for _, e := range n.Incoming {
			if pr := g.Nodes[e.From].ReplicaCount; pr > maxPred {
				maxPred = pr
			}
		}
		n.ReplicaCount = declared[id] * maxPred

		for _, e := range n.Outgoing {
			indegree[e.To]--
			if indegree[e.To] == 0 {
				queue = append(queue, e.To)
			}
		}
	}
}
