// Package ast defines the Pointy-Lang syntax tree produced by the parser
// and consumed by the graph builder.
package ast

import (
	"fmt"
	"strings"

	"github.com/bargom/pointyflow/internal/token"
)

// Expr is any Pointy-Lang syntax tree node.
type Expr interface {
	Pos() token.Position
	exprNode()
	fmt.Stringer
}

type base struct {
	pos token.Position
}

func (b base) Pos() token.Position { return b.pos }

// TaskRef names a single task, e.g. "downloader".
type TaskRef struct {
	base
	Name string
}

func NewTaskRef(pos token.Position, name string) *TaskRef {
	return &TaskRef{base: base{pos}, Name: name}
}

func (t *TaskRef) exprNode() {}
func (t *TaskRef) String() string { return t.Name }

// Seq is the "->" operator: t.Right runs after t.Left succeeds, fed its result.
type Seq struct {
	base
	Left, Right Expr
}

func NewSeq(pos token.Position, left, right Expr) *Seq {
	return &Seq{base: base{pos}, Left: left, Right: right}
}

func (s *Seq) exprNode() {}
func (s *Seq) String() string { return fmt.Sprintf("%s -> %s", s.Left, s.Right) }

// Broadcast is the "|->" operator: every exit of Left is wired to every
// leaf of Right. Downstream it behaves like Seq: a leaf of Right with
// several predecessors is invoked once with all of their results.
type Broadcast struct {
	base
	Left, Right Expr
}

func NewBroadcast(pos token.Position, left, right Expr) *Broadcast {
	return &Broadcast{base: base{pos}, Left: left, Right: right}
}

func (b *Broadcast) exprNode() {}
func (b *Broadcast) String() string { return fmt.Sprintf("%s |-> %s", b.Left, b.Right) }

// Parallel is the "||" operator: Left and Right run independently, with
// no edge added between them.
type Parallel struct {
	base
	Left, Right Expr
}

func NewParallel(pos token.Position, left, right Expr) *Parallel {
	return &Parallel{base: base{pos}, Left: left, Right: right}
}

func (p *Parallel) exprNode() {}
func (p *Parallel) String() string { return fmt.Sprintf("%s || %s", p.Left, p.Right) }

// Retry is "task * factor": Factor is the retry budget allowed after
// Task's initial attempt (total attempts = Factor + 1).
type Retry struct {
	base
	Task   Expr
	Factor int
}

func NewRetry(pos token.Position, task Expr, factor int) *Retry {
	return &Retry{base: base{pos}, Task: task, Factor: factor}
}

func (r *Retry) exprNode() {}
func (r *Retry) String() string { return fmt.Sprintf("%s * %d", r.Task, r.Factor) }

// RetryInverse is "factor * task", the factor-first spelling of Retry.
// Kept as a distinct node so the canonical printer round-trips the
// original operator order.
type RetryInverse struct {
	base
	Factor int
	Task   Expr
}

func NewRetryInverse(pos token.Position, factor int, task Expr) *RetryInverse {
	return &RetryInverse{base: base{pos}, Factor: factor, Task: task}
}

func (r *RetryInverse) exprNode() {}
func (r *RetryInverse) String() string { return fmt.Sprintf("%d * %s", r.Factor, r.Task) }

// Descriptor is "n -> task" or "n |-> task": task is replicated N times.
// Op records which of the two operators introduced it, for round-trip
// printing; the graph builder treats both identically (see DESIGN.md).
type Descriptor struct {
	base
	N     int
	Child Expr
	Op    token.Kind // token.POINTER or token.PPOINTER
}

func NewDescriptor(pos token.Position, n int, child Expr, op token.Kind) *Descriptor {
	return &Descriptor{base: base{pos}, N: n, Child: child, Op: op}
}

func (d *Descriptor) exprNode() {}
func (d *Descriptor) String() string {
	sep := "->"
	if d.Op == token.PPOINTER {
		sep = "|->"
	}
	return fmt.Sprintf("%d %s %s", d.N, sep, d.Child)
}

// Call is "task(group...)" — a conditional dispatch: Task selects,
// at runtime, exactly one member of Group to run.
type Call struct {
	base
	Task  Expr
	Group []Expr
}

func NewCall(pos token.Position, task Expr, group []Expr) *Call {
	return &Call{base: base{pos}, Task: task, Group: group}
}

func (c *Call) exprNode() {}
func (c *Call) String() string {
	parts := make([]string, len(c.Group))
	for i, g := range c.Group {
		parts[i] = g.String()
	}
	return fmt.Sprintf("%s(%s)", c.Task, strings.Join(parts, ", "))
}
