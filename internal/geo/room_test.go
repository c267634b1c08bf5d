package geo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	h3 "github.com/uber/h3-go/v4"
)

var beijing = Coord{Lat: 39.9, Lng: 116.4}

func TestRoomIDWorldConstant(t *testing.T) {
	require.Equal(t, "world_global", RoomID(beijing, ScaleWorld))
	require.Equal(t, "world_global", RoomID(Coord{Lat: -45, Lng: 170}, ScaleWorld))
}

func TestRoomIDScenario(t *testing.T) {
	district := RoomID(beijing, ScaleDistrict)
	city := RoomID(beijing, ScaleCity)

	require.True(t, strings.HasPrefix(district, "district_"))
	require.True(t, strings.HasPrefix(city, "city_"))

	wantDistrict := h3.LatLngToCell(h3.NewLatLng(39.9, 116.4), 6)
	wantCity := h3.LatLngToCell(h3.NewLatLng(39.9, 116.4), 4)
	require.Equal(t, "district_"+wantDistrict.String(), district)
	require.Equal(t, "city_"+wantCity.String(), city)
}

func TestRoomIDPartition(t *testing.T) {
	// 同一 cell 内的所有点映射到同一房间
	for _, scale := range []Scale{ScaleCity, ScaleDistrict} {
		cell := h3.LatLngToCell(h3.NewLatLng(beijing.Lat, beijing.Lng), Resolution(scale))
		center := CellCenter(cell)
		require.Equal(t, RoomID(beijing, scale), RoomID(center, scale))
		// cell 中心附近的小偏移仍在同一 cell 里
		require.Equal(t, RoomID(center, scale),
			RoomID(Coord{Lat: center.Lat + 0.0005, Lng: center.Lng - 0.0005}, scale))
	}
	// 相距很远的点必然不同房
	far := Coord{Lat: 48.86, Lng: 2.35}
	require.NotEqual(t, RoomID(beijing, ScaleDistrict), RoomID(far, ScaleDistrict))
	require.NotEqual(t, RoomID(beijing, ScaleCity), RoomID(far, ScaleCity))
}

func TestParseRoomID(t *testing.T) {
	s, _, err := ParseRoomID("world_global")
	require.NoError(t, err)
	require.Equal(t, ScaleWorld, s)

	district := RoomID(beijing, ScaleDistrict)
	s, cell, err := ParseRoomID(district)
	require.NoError(t, err)
	require.Equal(t, ScaleDistrict, s)
	require.Equal(t, 6, cell.Resolution())
	require.Equal(t, district, "district_"+cell.String())

	_, _, err = ParseRoomID("nonsense")
	require.Error(t, err)
	_, _, err = ParseRoomID("galaxy_8928308280fffff")
	require.Error(t, err)
	_, _, err = ParseRoomID("district_zzzz")
	require.Error(t, err)

	// 分辨率与尺度不匹配也要拒绝
	cityCell := h3.LatLngToCell(h3.NewLatLng(beijing.Lat, beijing.Lng), 4)
	_, _, err = ParseRoomID("district_" + cityCell.String())
	require.Error(t, err)
}

func TestCellBoundary(t *testing.T) {
	cell := h3.LatLngToCell(h3.NewLatLng(beijing.Lat, beijing.Lng), 6)
	boundary := CellBoundary(cell)
	require.GreaterOrEqual(t, len(boundary), 5) // 五边形 cell 也要能画
	center := CellCenter(cell)
	for _, v := range boundary {
		require.InDelta(t, center.Lat, v.Lat, 0.1)
		require.InDelta(t, center.Lng, v.Lng, 0.1)
	}
}

func TestCanJoinCell(t *testing.T) {
	own := h3.LatLngToCell(h3.NewLatLng(beijing.Lat, beijing.Lng), 6)

	// 自己所在 cell 与相邻 cell 都可加入
	require.True(t, CanJoinCell(beijing, own, ScaleDistrict, false))
	for _, n := range h3.GridDisk(own, 1) {
		require.True(t, CanJoinCell(beijing, n, ScaleDistrict, false))
	}

	// 远处的 cell 不可加入（约 1 度 ≈ 百余公里，远超 2 跳）
	far := h3.LatLngToCell(h3.NewLatLng(beijing.Lat+1, beijing.Lng+1), 6)
	require.Greater(t, h3.GridDistance(own, far), maxJoinDistance)
	require.False(t, CanJoinCell(beijing, far, ScaleDistrict, false))

	// 管理员不受限制
	require.True(t, CanJoinCell(beijing, far, ScaleDistrict, true))
}
