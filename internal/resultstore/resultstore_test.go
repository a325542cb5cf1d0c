package resultstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	s.Put(Entry{NodeID: "a", Replica: 0, Status: Succeeded, Value: 42})

	got, ok := s.Get("a", 0)
	require.True(t, ok)
	require.Equal(t, 42, got.Value)

	_, ok = s.Get("a", 1)
	require.False(t, ok)
}

func TestPutOverwrites(t *testing.T) {
	s := New()
	s.Put(Entry{NodeID: "a", Replica: 0, Status: Failed, Err: errors.New("boom")})
	s.Put(Entry{NodeID: "a", Replica: 0, Status: Succeeded, Value: "ok"})

	got, ok := s.Get("a", 0)
	require.True(t, ok)
	require.Equal(t, Succeeded, got.Status)
}

func TestAllReturnsEverything(t *testing.T) {
	s := New()
	s.Put(Entry{NodeID: "a", Replica: 0, Status: Succeeded})
	s.Put(Entry{NodeID: "a", Replica: 1, Status: Succeeded})
	s.Put(Entry{NodeID: "b", Replica: 0, Status: Skipped})

	all := s.All()
	require.Len(t, all, 3)
}
