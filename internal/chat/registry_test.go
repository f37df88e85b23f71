package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_MarkAdminIdempotent(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	r.MarkAdmin("conn-1")
	r.MarkAdmin("conn-1")

	req.True(r.IsAdmin("conn-1"))
	req.Equal(1, r.Len())
}

func TestRegistry_UnmarkAbsentIsNoOp(t *testing.T) {
	r := NewRegistry()
	r.Unmark("conn-1")
	require.Zero(t, r.Len())
}

func TestRegistry_AdminsSnapshot(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	r.MarkAdmin("conn-1")
	r.MarkAdmin("conn-2")

	req.ElementsMatch([]string{"conn-1", "conn-2"}, r.Admins())

	r.Unmark("conn-1")
	req.ElementsMatch([]string{"conn-2"}, r.Admins())
	req.False(r.IsAdmin("conn-1"))
}
