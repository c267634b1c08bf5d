package geo

import (
	"fmt"
	"strings"

	h3 "github.com/uber/h3-go/v4"
)

// Coord is a WGS84 coordinate pair in degrees.
type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RoomID buckets a coordinate into a stable room identifier at the
// given scale. Callers must pass coordinates within [-90,90]x[-180,180];
// out-of-range input is a caller bug, not handled here.
func RoomID(c Coord, s Scale) string {
	if s == ScaleWorld {
		return WorldRoomID
	}
	cell := h3.LatLngToCell(h3.NewLatLng(c.Lat, c.Lng), Resolution(s))
	return fmt.Sprintf("%s_%s", s, cell.String())
}

// ParseRoomID splits a room identifier back into scale and hex cell.
// The world room has no cell and returns an invalid Cell.
func ParseRoomID(id string) (Scale, h3.Cell, error) {
	if id == WorldRoomID {
		return ScaleWorld, 0, nil
	}
	prefix, rest, ok := strings.Cut(id, "_")
	if !ok {
		return "", 0, fmt.Errorf("malformed room id %q", id)
	}
	s := Scale(prefix)
	if s != ScaleCity && s != ScaleDistrict {
		return "", 0, fmt.Errorf("unknown room scale %q", prefix)
	}
	cell := h3.Cell(h3.IndexFromString(rest))
	if !cell.IsValid() {
		return "", 0, fmt.Errorf("invalid hex cell %q", rest)
	}
	if cell.Resolution() != Resolution(s) {
		return "", 0, fmt.Errorf("cell %q has resolution %d, scale %s expects %d",
			rest, cell.Resolution(), s, Resolution(s))
	}
	return s, cell, nil
}

// CellCenter returns the center coordinate of a hex cell, used for
// click-to-join and for rendering the cell's room marker.
func CellCenter(cell h3.Cell) Coord {
	ll := cell.LatLng()
	return Coord{Lat: ll.Lat, Lng: ll.Lng}
}

// CellBoundary returns the polygon outline of a hex cell.
func CellBoundary(cell h3.Cell) []Coord {
	boundary := cell.Boundary()
	out := make([]Coord, 0, len(boundary))
	for _, ll := range boundary {
		out = append(out, Coord{Lat: ll.Lat, Lng: ll.Lng})
	}
	return out
}

// maxJoinDistance 非管理员手动加入房间的最大跳数（相邻环数）
const maxJoinDistance = 2

// CanJoinCell reports whether a user standing at userCoord may manually
// join the room of the target cell at the given scale. Admins may join
// any room; everyone else is limited to cells within a small ring of
// their own current cell, so a map click cannot teleport across the
// globe.
func CanJoinCell(userCoord Coord, target h3.Cell, s Scale, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	if s == ScaleWorld {
		return true
	}
	own := h3.LatLngToCell(h3.NewLatLng(userCoord.Lat, userCoord.Lng), Resolution(s))
	dist := h3.GridDistance(own, target)
	if dist < 0 {
		// 跨五边形等无法计算距离的情况：非管理员一律拒绝
		return false
	}
	return dist <= maxJoinDistance
}
