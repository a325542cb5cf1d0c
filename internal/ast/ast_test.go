package ast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bargom/pointyflow/internal/token"
)

func TestStringRoundTripsWorkedExample(t *testing.T) {
	var pos token.Position

	downloader := NewTaskRef(pos, "downloader")
	desc := NewDescriptor(pos, 3, downloader, token.PPOINTER)
	parser := NewRetryInverse(pos, 5, NewTaskRef(pos, "parser"))
	notifier := NewTaskRef(pos, "notifier")
	router := NewCall(pos, NewTaskRef(pos, "router"), []Expr{
		NewTaskRef(pos, "success"),
		NewTaskRef(pos, "failure"),
	})

	tree := NewSeq(pos,
		NewSeq(pos, desc, NewParallel(pos, parser, notifier)),
		router,
	)

	require.Equal(t,
		"3 |-> downloader -> 5 * parser || notifier -> router(success, failure)",
		tree.String(),
	)
}

func TestRetryVsRetryInverseOrderPreserved(t *testing.T) {
	var pos token.Position
	task := NewTaskRef(pos, "a")

	require.Equal(t, "a * 2", NewRetry(pos, task, 2).String())
	require.Equal(t, "2 * a", NewRetryInverse(pos, 2, task).String())
}
