package geo

import (
	"fmt"
	"sync"

	h3 "github.com/uber/h3-go/v4"
)

// Membership is the set of three concurrently-tracked rooms for one
// session, one per scale.
type Membership struct {
	World    string `json:"world"`
	City     string `json:"city"`
	District string `json:"district"`
}

// Room returns the room id at the given scale.
func (m Membership) Room(s Scale) string {
	switch s {
	case ScaleCity:
		return m.City
	case ScaleDistrict:
		return m.District
	default:
		return m.World
	}
}

// Resolver owns the session's fuzzed anchor coordinate and derives room
// membership from it. Rooms are re-derived only when the anchor changes
// (explicit relocation) or when the user joins a clicked hex cell —
// never on a presence tick.
type Resolver struct {
	mu     sync.Mutex
	fuzzer *Fuzzer

	anchor Coord
	// 手动点击六边形后，该尺度的房间覆盖锚点推导值
	overrides map[Scale]string
}

// NewResolver fuzzes the raw fix once and anchors the session on the
// result.
func NewResolver(raw Coord, fuzzer *Fuzzer) *Resolver {
	r := &Resolver{fuzzer: fuzzer, overrides: map[Scale]string{}}
	r.anchor = fuzzer.Fuzz(raw)
	return r
}

// Anchor returns the session's canonical (fuzzed) location.
func (r *Resolver) Anchor() Coord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.anchor
}

// MarkerCoord returns a freshly micro-fuzzed coordinate for on-map
// marker rendering. Cosmetic only.
func (r *Resolver) MarkerCoord() Coord {
	r.mu.Lock()
	anchor := r.anchor
	r.mu.Unlock()
	return r.fuzzer.MicroFuzz(anchor)
}

// Resolve computes the three current room ids.
func (r *Resolver) Resolve() Membership {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := Membership{
		World:    WorldRoomID,
		City:     RoomID(r.anchor, ScaleCity),
		District: RoomID(r.anchor, ScaleDistrict),
	}
	if id, ok := r.overrides[ScaleCity]; ok {
		m.City = id
	}
	if id, ok := r.overrides[ScaleDistrict]; ok {
		m.District = id
	}
	return m
}

// Relocate re-fuzzes a new raw GPS fix and clears any hex-click
// overrides; membership derives from the new anchor.
func (r *Resolver) Relocate(raw Coord) Membership {
	r.mu.Lock()
	r.anchor = r.fuzzer.Fuzz(raw)
	r.overrides = map[Scale]string{}
	r.mu.Unlock()
	return r.Resolve()
}

// JoinCell switches one scale to a manually selected hex cell. The
// admission check (CanJoinCell) is enforced here for non-admins.
func (r *Resolver) JoinCell(cell h3.Cell, s Scale, isAdmin bool) (Membership, error) {
	if s == ScaleWorld {
		return Membership{}, fmt.Errorf("world scale has a single room")
	}
	r.mu.Lock()
	anchor := r.anchor
	r.mu.Unlock()
	if !CanJoinCell(anchor, cell, s, isAdmin) {
		return Membership{}, fmt.Errorf("cell %s is out of joinable range", cell)
	}
	r.mu.Lock()
	r.overrides[s] = fmt.Sprintf("%s_%s", s, cell.String())
	r.mu.Unlock()
	return r.Resolve(), nil
}
