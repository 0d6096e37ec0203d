package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/missioncontrol/internal/beans"
)

type fakeMember struct {
	id     int64
	name   string
	denied bool
}

func (m *fakeMember) UniqueID() int64                { return m.id }
func (m *fakeMember) Name() string                   { return m.name }
func (m *fakeMember) HasAccess(context.Context) bool { return !m.denied }

func TestGroup_Register(t *testing.T) {
	g := NewGroup("telemetry")
	a := &fakeMember{id: 1, name: "position"}
	b := &fakeMember{id: 2, name: "altitude"}

	require.NoError(t, g.Register(a))
	require.NoError(t, g.Register(b))
	assert.ErrorIs(t, g.Register(a), beans.ErrInvalidState)

	members := g.Members()
	require.Len(t, members, 2)
	assert.Equal(t, "position", members[0].Name())
	assert.Equal(t, "altitude", members[1].Name())
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, "telemetry", g.Name())
}

func TestGroup_SharedController(t *testing.T) {
	g := NewGroup("telemetry")

	token, err := g.BeginCritical(context.Background())
	require.NoError(t, err)
	assert.True(t, g.Controller().HeldBy(token.Context()))
	require.NoError(t, token.Release())
}

func TestGroup_DeniedIfAnyMemberDenies(t *testing.T) {
	g := NewGroup("telemetry")
	require.NoError(t, g.Register(&fakeMember{id: 1, name: "position"}))
	require.NoError(t, g.Register(&fakeMember{id: 2, name: "altitude", denied: true}))

	_, err := g.BeginCritical(context.Background())
	assert.ErrorIs(t, err, beans.ErrAccessDenied)

	err = g.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, beans.ErrAccessDenied)
}
