package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLexBasicChain(t *testing.T) {
	toks, err := Lex("t.ptly", "downloader -> parser")
	require.NoError(t, err)
	require.Equal(t, []Kind{TASKNAME, POINTER, TASKNAME, EOF}, kinds(toks))
}

func TestLexWorkedExample(t *testing.T) {
	src := "3 |-> downloader -> 5 * parser || notifier -> router(success, failure)"
	toks, err := Lex("t.ptly", src)
	require.NoError(t, err)
	require.Equal(t, []Kind{
		NUMBER, PPOINTER, TASKNAME, POINTER, NUMBER, RETRY, TASKNAME, PARALLEL,
		TASKNAME, POINTER, TASKNAME, LPAREN, TASKNAME, SEPARATOR, TASKNAME, RPAREN, EOF,
	}, kinds(toks))
}

func TestLexDropsCommentsAndDirectives(t *testing.T) {
	src := "# a comment\n@retry_all\na -> b # trailing\n"
	toks, err := Lex("t.ptly", src)
	require.NoError(t, err)
	require.Equal(t, []Kind{TASKNAME, POINTER, TASKNAME, EOF}, kinds(toks))
}

func TestLexUnknownCharacter(t *testing.T) {
	_, err := Lex("t.ptly", "a -> $b")
	require.Error(t, err)
}

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}
