package geo

import "math"

// DecodePolyline decodes a Google polyline5-encoded string into points.
// Route endpoints accept an encoded polyline as a compact alternative to an
// explicit waypoint list.
func DecodePolyline(encoded string) []Point {
	if encoded == "" {
		return nil
	}

	var points []Point
	index, lat, lng := 0, 0, 0

	for index < len(encoded) {
		latDelta, next := decodePolylineValue(encoded, index)
		index = next
		lat += latDelta

		lngDelta, next := decodePolylineValue(encoded, index)
		index = next
		lng += lngDelta

		points = append(points, Point{
			Lat: float64(lat) / 1e5,
			Lng: float64(lng) / 1e5,
		})
	}
	return points
}

// EncodePolyline encodes points into a Google polyline5 string.
func EncodePolyline(points []Point) string {
	if len(points) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(points)*4)
	prevLat, prevLng := 0, 0

	for _, p := range points {
		lat := int(math.Round(p.Lat * 1e5))
		lng := int(math.Round(p.Lng * 1e5))

		buf = encodePolylineValue(buf, lat-prevLat)
		buf = encodePolylineValue(buf, lng-prevLng)

		prevLat, prevLng = lat, lng
	}
	return string(buf)
}

// decodePolylineValue decodes one delta starting at index, returning the
// value and the index past it.
func decodePolylineValue(encoded string, index int) (int, int) {
	shift, result := 0, 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

func encodePolylineValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}
