package parser

import (
	"fmt"

	"github.com/bargom/pointyflow/internal/token"
)

// SyntaxError reports a parse failure. Pointy-Lang's grammar is LALR(1)
// in spirit — single-token lookahead, no backtracking, no error
// recovery — so there is always exactly one offending token.
type SyntaxError struct {
	Pos      token.Position
	Expected string
	Got      token.Token
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Pos, e.Expected, e.Got.Kind)
}

func newSyntaxError(expected string, got token.Token) *SyntaxError {
	return &SyntaxError{Pos: got.Pos, Expected: expected, Got: got}
}
