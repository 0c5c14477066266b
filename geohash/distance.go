package geohash

import (
	"math"

	"bikeshare-risk/models"
)

// EarthRadiusMeters is the IUGG mean Earth radius.
const EarthRadiusMeters = 6371008.8

// boxPad widens search boxes by a hair so that points on the boundary are
// never lost to rounding.
const boxPad = 1e-9

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b models.Coordinate) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Box is a latitude/longitude rectangle in degrees.
type Box struct {
	MinLat, MinLng, MaxLat, MaxLng float64
}

func (b Box) Contains(c models.Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

// SearchBox returns a rectangle holding every point within radius meters of
// center. The longitude span is the exact extent of the spherical cap; near
// the poles and across the antimeridian it widens to the full -180..180.
func SearchBox(center models.Coordinate, radiusMeters float64) Box {
	d := radiusMeters / EarthRadiusMeters
	dLat := degrees(d)
	b := Box{
		MinLat: center.Lat - dLat - boxPad,
		MaxLat: center.Lat + dLat + boxPad,
		MinLng: -180,
		MaxLng: 180,
	}

	full := b.MinLat <= -90 || b.MaxLat >= 90 || d >= math.Pi/2
	if !full {
		sinD, cosLat := math.Sin(d), math.Cos(radians(center.Lat))
		if sinD < cosLat {
			dLng := degrees(math.Asin(sinD/cosLat)) + boxPad
			if center.Lng-dLng >= -180 && center.Lng+dLng <= 180 {
				b.MinLng, b.MaxLng = center.Lng-dLng, center.Lng+dLng
			}
		}
	}
	b.MinLat = math.Max(b.MinLat, -90)
	b.MaxLat = math.Min(b.MaxLat, 90)
	return b
}
