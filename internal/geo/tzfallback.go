package geo

import "strings"

// 定位失败/拒绝时按时区取一个代表性城市坐标，保证总能入房
var tzDefaults = map[string]Coord{
	"Asia/Shanghai":       {Lat: 31.23, Lng: 121.47},
	"Asia/Chongqing":      {Lat: 29.56, Lng: 106.55},
	"Asia/Hong_Kong":      {Lat: 22.32, Lng: 114.17},
	"Asia/Taipei":         {Lat: 25.03, Lng: 121.57},
	"Asia/Tokyo":          {Lat: 35.68, Lng: 139.69},
	"Asia/Seoul":          {Lat: 37.57, Lng: 126.98},
	"Asia/Singapore":      {Lat: 1.35, Lng: 103.82},
	"Asia/Bangkok":        {Lat: 13.76, Lng: 100.50},
	"Asia/Kolkata":        {Lat: 28.61, Lng: 77.21},
	"Asia/Dubai":          {Lat: 25.20, Lng: 55.27},
	"Europe/London":       {Lat: 51.51, Lng: -0.13},
	"Europe/Paris":        {Lat: 48.86, Lng: 2.35},
	"Europe/Berlin":       {Lat: 52.52, Lng: 13.41},
	"Europe/Moscow":       {Lat: 55.76, Lng: 37.62},
	"Europe/Madrid":       {Lat: 40.42, Lng: -3.70},
	"America/New_York":    {Lat: 40.71, Lng: -74.01},
	"America/Chicago":     {Lat: 41.88, Lng: -87.63},
	"America/Denver":      {Lat: 39.74, Lng: -104.99},
	"America/Los_Angeles": {Lat: 34.05, Lng: -118.24},
	"America/Sao_Paulo":   {Lat: -23.55, Lng: -46.63},
	"America/Mexico_City": {Lat: 19.43, Lng: -99.13},
	"Australia/Sydney":    {Lat: -33.87, Lng: 151.21},
	"Africa/Cairo":        {Lat: 30.04, Lng: 31.24},
	"Africa/Lagos":        {Lat: 6.52, Lng: 3.38},
}

// 大洲级兜底
var regionDefaults = map[string]Coord{
	"Asia":      {Lat: 31.23, Lng: 121.47},
	"Europe":    {Lat: 48.86, Lng: 2.35},
	"America":   {Lat: 40.71, Lng: -74.01},
	"Africa":    {Lat: 30.04, Lng: 31.24},
	"Australia": {Lat: -33.87, Lng: 151.21},
	"Pacific":   {Lat: -36.85, Lng: 174.76},
}

// FallbackCoord maps an IANA timezone name to a representative
// coordinate, used when geolocation is unavailable or denied. Unknown
// zones fall back to their region, then to UTC's Greenwich.
func FallbackCoord(tz string) Coord {
	if c, ok := tzDefaults[tz]; ok {
		return c
	}
	if region, _, ok := strings.Cut(tz, "/"); ok {
		if c, ok := regionDefaults[region]; ok {
			return c
		}
	}
	return Coord{Lat: 51.48, Lng: 0.0}
}
