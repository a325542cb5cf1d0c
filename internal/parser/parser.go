// Package parser turns a Pointy-Lang token stream into an ast.Expr.
//
// The grammar is written LALR(1)-style (no ambiguity needing backtracking,
// one token of lookahead decides every production), but nothing in this
// module pulls in a yacc/LALR table generator, so the parser itself is a
// hand-written precedence-climbing recursive descent implementation
// rather than a generated table or a participle struct grammar — see
// DESIGN.md for why. Lexing is still delegated to package token, which
// wraps participle's stateful lexer.
package parser

import (
	"strconv"

	"github.com/bargom/pointyflow/internal/ast"
	"github.com/bargom/pointyflow/internal/token"
)

// Parse lexes and parses src, returning the root expression.
func Parse(filename, src string) (ast.Expr, error) {
	toks, err := token.Lex(filename, src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parsePointerChain()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != token.EOF {
		return nil, newSyntaxError("end of input", p.peek())
	}
	return expr, nil
}

type parser struct {
	toks []token.Token
	pos  int
}

func (p *parser) peek() token.Token { return p.toks[p.pos] }

func (p *parser) next() token.Token {
	t := p.toks[p.pos]
	if t.Kind != token.EOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(k token.Kind, what string) (token.Token, error) {
	if p.peek().Kind != k {
		return token.Token{}, newSyntaxError(what, p.peek())
	}
	return p.next(), nil
}

// parsePointerChain implements the left-associative "->"/"|->" level.
// Per the worked example in spec §6, "||" must bind tighter than "->"/
// "|->" so that `a -> b || c -> d` groups as `a -> (b || c) -> d` — this
// is the precedence this implementation picked for the grammar's
// acknowledged tie-break ambiguity; see DESIGN.md.
func (p *parser) parsePointerChain() (ast.Expr, error) {
	left, err := p.parseParallelChain()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case token.POINTER:
			pos := p.next().Pos
			right, err := p.parseParallelChain()
			if err != nil {
				return nil, err
			}
			left = ast.NewSeq(pos, left, right)
		case token.PPOINTER:
			pos := p.next().Pos
			right, err := p.parseParallelChain()
			if err != nil {
				return nil, err
			}
			left = ast.NewBroadcast(pos, left, right)
		default:
			return left, nil
		}
	}
}

// parseParallelChain implements the left-associative "||" level.
func (p *parser) parseParallelChain() (ast.Expr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == token.PARALLEL {
		pos := p.next().Pos
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = ast.NewParallel(pos, left, right)
	}
	return left, nil
}

// parseAtom handles the tightest-binding forms: a bare task, a
// RETRY-wrapped task ("task * factor"), or a descriptor ("n -> task" /
// "n |-> task"). NUMBER is disambiguated by the single next token,
// exactly as an LALR(1) parser would: RETRY means "n" is a factor,
// POINTER/PPOINTER means "n" is a replication descriptor.
func (p *parser) parseAtom() (ast.Expr, error) {
	if p.peek().Kind == token.NUMBER {
		numTok := p.next()
		n, err := strconv.Atoi(numTok.Value)
		if err != nil {
			return nil, newSyntaxError("integer literal", numTok)
		}
		switch p.peek().Kind {
		case token.RETRY:
			p.next()
			// RETRY is non-associative: its task-side operand must not
			// itself carry a trailing "* factor", so this calls
			// parseTaskCore directly rather than parseTask. A leftover
			// RETRY token (as in "5 * parser * 3") is left unconsumed and
			// surfaces as a SyntaxError once the caller expects EOF.
			task, err := p.parseTaskCore()
			if err != nil {
				return nil, err
			}
			return ast.NewRetryInverse(numTok.Pos, n, task), nil
		case token.POINTER, token.PPOINTER:
			opTok := p.next()
			child, err := p.parseTask()
			if err != nil {
				return nil, err
			}
			// The descriptor's own operator is kept only for canonical
			// printing; the graph builder applies replicaCount
			// identically regardless of which operator introduced it —
			// see DESIGN.md.
			return ast.NewDescriptor(numTok.Pos, n, child, opTok.Kind), nil
		default:
			return nil, newSyntaxError("'*' or '->'/'|->' after a number", p.peek())
		}
	}
	return p.parseTask()
}

// parseTask implements the `task` and `task RETRY factor` productions: a
// parseTaskCore, optionally followed by a trailing "* factor".
func (p *parser) parseTask() (ast.Expr, error) {
	pos := p.peek().Pos
	expr, err := p.parseTaskCore()
	if err != nil {
		return nil, err
	}

	if p.peek().Kind == token.RETRY {
		p.next()
		factorTok, err := p.expect(token.NUMBER, "a retry factor")
		if err != nil {
			return nil, err
		}
		factor, err := strconv.Atoi(factorTok.Value)
		if err != nil {
			return nil, newSyntaxError("integer literal", factorTok)
		}
		expr = ast.NewRetry(pos, expr, factor)
	}

	return expr, nil
}

// parseTaskCore implements the bare `task` production on its own: a
// TASKNAME, optionally applied to one or more call groups ("t(a,b)(c,d)").
// It never consumes a trailing "* factor" — RETRY is non-associative, so
// the RETRY operand (parseAtom's RETRY case) calls this directly instead
// of parseTask, leaving any further "* factor" unconsumed as a syntax
// error rather than silently nesting two Retry wrappers around one node.
func (p *parser) parseTaskCore() (ast.Expr, error) {
	nameTok, err := p.expect(token.TASKNAME, "a task name")
	if err != nil {
		return nil, err
	}
	var expr ast.Expr = ast.NewTaskRef(nameTok.Pos, nameTok.Value)

	for p.peek().Kind == token.LPAREN {
		p.next()
		group, err := p.parseTaskGroup()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, "')'"); err != nil {
			return nil, err
		}
		expr = ast.NewCall(nameTok.Pos, expr, group)
	}

	return expr, nil
}

// parseTaskGroup implements task_group, which per grammar requires at
// least two comma-separated expressions.
func (p *parser) parseTaskGroup() ([]ast.Expr, error) {
	first, err := p.parsePointerChain()
	if err != nil {
		return nil, err
	}
	group := []ast.Expr{first}
	for p.peek().Kind == token.SEPARATOR {
		p.next()
		next, err := p.parsePointerChain()
		if err != nil {
			return nil, err
		}
		group = append(group, next)
	}
	if len(group) < 2 {
		return nil, newSyntaxError("at least one ',' separated member", p.peek())
	}
	return group, nil
}
