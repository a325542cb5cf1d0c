package token

import (
	"fmt"
	"io"
	"strings"

	plexer "github.com/alecthomas/participle/v2/lexer"
)

// rawLexer is the stateful regex-rule lexer participle builds for us. We
// only use it for tokenization; the grammar itself is hand-rolled in
// package parser, not a participle struct grammar.
var rawLexer = plexer.MustStateful(plexer.Rules{
	"Root": {
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "Comment", Pattern: `#[^\n]*`},
		{Name: "Directive", Pattern: `@[A-Za-z_][A-Za-z0-9_]*`},
		{Name: "PPointer", Pattern: `\|->`},
		{Name: "Pointer", Pattern: `->`},
		{Name: "Parallel", Pattern: `\|\|`},
		{Name: "Retry", Pattern: `\*`},
		{Name: "Separator", Pattern: `,`},
		{Name: "LParen", Pattern: `\(`},
		{Name: "RParen", Pattern: `\)`},
		{Name: "Number", Pattern: `[0-9]+`},
		{Name: "TaskName", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	},
})

var kindBySymbol = map[string]Kind{
	"Pointer":  POINTER,
	"PPointer": PPOINTER,
	"Parallel": PARALLEL,
	"Retry":    RETRY,
	"Separator": SEPARATOR,
	"LParen":   LPAREN,
	"RParen":   RPAREN,
	"Number":   NUMBER,
	"TaskName": TASKNAME,
}

// discarded symbol names: kept in the token stream by participle but
// dropped before the parser ever sees them, same treatment whitespace
// gets. A COMMENT or DIRECTIVE never influences graph shape.
var discarded = map[string]bool{
	"Whitespace": true,
	"Comment":    true,
	"Directive":  true,
}

// Lex tokenizes src and returns the non-discarded token stream terminated
// by a single EOF token.
func Lex(filename string, src string) ([]Token, error) {
	lex, err := rawLexer.Lex(filename, strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("token: lex %s: %w", filename, err)
	}
	symbols := rawLexer.Symbols()
	names := make(map[plexer.TokenType]string, len(symbols))
	for name, tt := range symbols {
		names[tt] = name
	}

	var out []Token
	for {
		raw, err := lex.Next()
		if err != nil {
			return nil, fmt.Errorf("token: lex %s: %w", filename, err)
		}
		if raw.EOF() {
			out = append(out, Token{Kind: EOF, Pos: toPos(filename, raw.Pos)})
			return out, nil
		}
		name := names[raw.Type]
		if discarded[name] {
			continue
		}
		kind, ok := kindBySymbol[name]
		if !ok {
			return nil, fmt.Errorf("token: lex %s: unrecognized symbol %q at %s", filename, name, raw.Pos)
		}
		out = append(out, Token{Kind: kind, Value: raw.Value, Pos: toPos(filename, raw.Pos)})
	}
}

// LexReader is a convenience wrapper for streaming sources.
func LexReader(filename string, r io.Reader) ([]Token, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("token: read %s: %w", filename, err)
	}
	return Lex(filename, string(b))
}

func toPos(filename string, p plexer.Position) Position {
	return Position{Filename: filename, Line: p.Line, Column: p.Column, Offset: p.Offset}
}
