package access

import (
	"context"
	"sync"

	"github.com/dshills/missioncontrol/internal/beans"
)

// Member is a property that belongs to a consistency group.
type Member interface {
	UniqueID() int64
	Name() string

	// HasAccess evaluates the member's access predicate for ctx.
	HasAccess(ctx context.Context) bool
}

// Group is a consistency group: a named set of properties sharing one
// Controller. Membership is decided when a property is constructed and
// never changes afterwards.
type Group struct {
	name       string
	controller *Controller

	mu      sync.RWMutex
	members []Member
	ids     map[int64]struct{}
}

// NewGroup creates an empty consistency group.
func NewGroup(name string, opts ...Option) *Group {
	return &Group{
		name:       name,
		controller: NewController(opts...),
		ids:        make(map[int64]struct{}),
	}
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.name
}

// Controller returns the controller shared by all members.
func (g *Group) Controller() *Controller {
	return g.controller
}

// Register adds a member. It is called by property construction; a member
// can join only once.
func (g *Group) Register(m Member) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.ids[m.UniqueID()]; ok {
		return beans.NewError("register", m.Name(), beans.ErrInvalidState)
	}
	g.ids[m.UniqueID()] = struct{}{}
	g.members = append(g.members, m)
	return nil
}

// Members returns the members in registration order.
func (g *Group) Members() []Member {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Member, len(g.members))
	copy(out, g.members)
	return out
}

// Len returns the number of members.
func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// BeginCritical locks the whole group. Access is denied if any member
// rejects the caller.
func (g *Group) BeginCritical(ctx context.Context) (*Token, error) {
	return g.controller.BeginCritical(ctx, g.allows)
}

// Do runs fn while holding the group lock and always releases it.
func (g *Group) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return g.controller.Do(ctx, g.allows, fn)
}

func (g *Group) allows(ctx context.Context) bool {
	for _, m := range g.Members() {
		if !m.HasAccess(ctx) {
			return false
		}
	}
	return true
}
