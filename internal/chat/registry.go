package chat

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// outboundBuffer is the per-connection send queue depth. A consumer that
// falls this far behind starts losing pushes and must catch up via history.
const outboundBuffer = 64

const roomShards = 16

// connection is the registry's record of one live session: the identity
// fixed at handshake, the outbound queue its write pump drains, and the set
// of rooms it has joined this session.
type connection struct {
	identity Identity
	out      chan Event
	joined   map[uuid.UUID]struct{}
}

// roomShard holds the membership sets for a slice of the course-ID space.
// Each shard has its own RWMutex, so a publish reading room A never contends
// with a join mutating room B on another shard. MembersOf under RLock admits
// concurrent readers during the frequent publish path.
type roomShard struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[uuid.UUID]struct{} // courseID -> set of connectionID
}

// Registry tracks live connections and their room memberships. It performs
// no authorization: the gateway decides, the registry records.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*connection

	shards [roomShards]roomShard
}

func NewRegistry() *Registry {
	r := &Registry{conns: make(map[uuid.UUID]*connection)}
	for i := range r.shards {
		r.shards[i].rooms = make(map[uuid.UUID]map[uuid.UUID]struct{})
	}
	return r
}

func (r *Registry) shard(courseID uuid.UUID) *roomShard {
	h := fnv.New32a()
	h.Write(courseID[:])
	return &r.shards[h.Sum32()%roomShards]
}

// Register records a new live session. Called exactly once per connection at
// handshake. A duplicate connectionID is a transport-layer defect, reported
// as ErrConflict rather than papered over.
func (r *Registry) Register(connID uuid.UUID, identity Identity) (<-chan Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[connID]; exists {
		return nil, fmt.Errorf("register %s: %w", connID, ErrConflict)
	}
	c := &connection{
		identity: identity,
		out:      make(chan Event, outboundBuffer),
		joined:   make(map[uuid.UUID]struct{}),
	}
	r.conns[connID] = c
	return c.out, nil
}

// Join adds the connection to a course room. Idempotent: joining a room the
// connection is already in is a no-op.
func (r *Registry) Join(connID, courseID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return fmt.Errorf("join: connection %s: %w", connID, ErrSessionGone)
	}
	c.joined[courseID] = struct{}{}

	// The room insert stays inside the r.mu section: an Unregister cannot
	// land between the joined-set update and the shard update and strand a
	// dead connID in the room map. Lock order is r.mu, then shard.mu; no
	// path acquires them in the other order.
	s := r.shard(courseID)
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.rooms[courseID]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		s.rooms[courseID] = members
	}
	members[connID] = struct{}{}
	return nil
}

// Leave removes the connection from a course room. No-op if not a member.
func (r *Registry) Leave(connID, courseID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[connID]; ok {
		delete(c.joined, courseID)
	}
	r.dropFromRoom(connID, courseID)
}

// Unregister tears down a connection entirely: every room membership and the
// identity record. This is the one cleanup path for both voluntary and abrupt
// disconnects, so it must succeed no matter what state the session was in.
func (r *Registry) Unregister(connID uuid.UUID) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connID)
	joined := lo.Keys(c.joined)
	r.mu.Unlock()

	for _, courseID := range joined {
		r.dropFromRoom(connID, courseID)
	}
}

func (r *Registry) dropFromRoom(connID, courseID uuid.UUID) {
	s := r.shard(courseID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if members, ok := s.rooms[courseID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(s.rooms, courseID)
		}
	}
}

// MembersOf returns a snapshot of the connections currently joined to a room.
// The copy is taken under the shard lock, so it never exposes a
// partially-updated set; it reflects all joins and leaves that happened
// before the call.
func (r *Registry) MembersOf(courseID uuid.UUID) []uuid.UUID {
	s := r.shard(courseID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Keys(s.rooms[courseID])
}

// IsJoined reports whether the connection has joined the room this session.
func (r *Registry) IsJoined(connID, courseID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	_, joined := c.joined[courseID]
	return joined
}

// Identity returns the identity bound to a connection at handshake.
func (r *Registry) Identity(connID uuid.UUID) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return Identity{}, false
	}
	return c.identity, true
}

// delivery pairs a room member's connection with its outbound queue, for the
// broadcaster's fan-out loop.
type delivery struct {
	connID uuid.UUID
	userID uuid.UUID
	out    chan Event
}

func (r *Registry) deliveries(courseID uuid.UUID) []delivery {
	members := r.MembersOf(courseID)
	if len(members) == 0 {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]delivery, 0, len(members))
	for _, connID := range members {
		// A member may have unregistered between the two lookups; skip it.
		c, ok := r.conns[connID]
		if !ok {
			continue
		}
		out = append(out, delivery{connID: connID, userID: c.identity.UserID, out: c.out})
	}
	return out
}
