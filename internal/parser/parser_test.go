package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bargom/pointyflow/internal/ast"
)

func TestParseWorkedExampleShape(t *testing.T) {
	src := "3 |-> downloader -> 5 * parser || notifier -> router(success, failure)"
	expr, err := Parse("t.ptly", src)
	require.NoError(t, err)

	top, ok := expr.(*ast.Seq)
	require.True(t, ok, "top level must be Seq into router")
	call, ok := top.Right.(*ast.Call)
	require.True(t, ok)
	require.Equal(t, "router", call.Task.(*ast.TaskRef).Name)
	require.Len(t, call.Group, 2)

	inner, ok := top.Left.(*ast.Seq)
	require.True(t, ok, "downloader must Seq into the parser/notifier parallel group")
	desc, ok := inner.Left.(*ast.Descriptor)
	require.True(t, ok)
	require.Equal(t, 3, desc.N)
	require.Equal(t, "downloader", desc.Child.(*ast.TaskRef).Name)

	par, ok := inner.Right.(*ast.Parallel)
	require.True(t, ok)
	retry, ok := par.Left.(*ast.RetryInverse)
	require.True(t, ok)
	require.Equal(t, 5, retry.Factor)
	require.Equal(t, "parser", retry.Task.(*ast.TaskRef).Name)
	require.Equal(t, "notifier", par.Right.(*ast.TaskRef).Name)
}

func TestParseRoundTripsStringForm(t *testing.T) {
	src := "3 |-> downloader -> 5 * parser || notifier -> router(success, failure)"
	expr, err := Parse("t.ptly", src)
	require.NoError(t, err)
	require.Equal(t, src, expr.String())
}

func TestParseSimpleSeq(t *testing.T) {
	expr, err := Parse("t.ptly", "a -> b")
	require.NoError(t, err)
	require.Equal(t, "a -> b", expr.String())
}

func TestParseRetryBothOrders(t *testing.T) {
	expr, err := Parse("t.ptly", "a * 2")
	require.NoError(t, err)
	require.IsType(t, &ast.Retry{}, expr)

	expr, err = Parse("t.ptly", "2 * a")
	require.NoError(t, err)
	require.IsType(t, &ast.RetryInverse{}, expr)
}

func TestParseChainedCall(t *testing.T) {
	expr, err := Parse("t.ptly", "t(x, y)(w, z)")
	require.NoError(t, err)
	outer, ok := expr.(*ast.Call)
	require.True(t, ok)
	require.Len(t, outer.Group, 2)
	inner, ok := outer.Task.(*ast.Call)
	require.True(t, ok)
	require.Equal(t, "t", inner.Task.(*ast.TaskRef).Name)
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"3",              // NUMBER not followed by RETRY or POINTER/PPOINTER
		"a ->",           // dangling operator
		"a(b)",           // task_group needs >= 2 members
		"a -> b c",       // trailing garbage
		"(a)",            // LPAREN cannot start an expression
		"5 * parser * 3", // RETRY is non-associative, can't stack both orders
	}
	for _, src := range cases {
		_, err := Parse("t.ptly", src)
		require.Error(t, err, src)
		require.IsType(t, &SyntaxError{}, err)
	}
}
