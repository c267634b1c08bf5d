package geo

// Scale is one of the three nested room granularities.
type Scale string

const (
	ScaleWorld    Scale = "world"
	ScaleCity     Scale = "city"
	ScaleDistrict Scale = "district"
)

// zoom 阈值：>=12 街区，>=8 城市，其余世界
const (
	zoomDistrict = 12
	zoomCity     = 8
)

// 每个尺度对应固定的 H3 分辨率（city 粗、district 细）
const (
	resCity     = 4
	resDistrict = 6
)

// WorldRoomID is the single global room shared by everyone.
const WorldRoomID = "world_global"

// Scales lists all scales from coarsest to finest.
var Scales = []Scale{ScaleWorld, ScaleCity, ScaleDistrict}

// ScaleForZoom maps a map zoom level to a Scale. Boundaries are
// inclusive on the lower end of each tier.
func ScaleForZoom(zoom float64) Scale {
	switch {
	case zoom >= zoomDistrict:
		return ScaleDistrict
	case zoom >= zoomCity:
		return ScaleCity
	default:
		return ScaleWorld
	}
}

// Resolution returns the H3 resolution used for hex bucketing at the
// given scale. WORLD has no hex bucketing and returns -1.
func Resolution(s Scale) int {
	switch s {
	case ScaleCity:
		return resCity
	case ScaleDistrict:
		return resDistrict
	default:
		return -1
	}
}
