package spatial

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// approximate cell width at the equator, indexed by precision
var geohashCellMeters = [...]float64{
	0, 5000000, 625000, 123000, 19500, 3900, 610, 120, 19, 3.7, 0.6, 0.12, 0.019,
}

// EncodeGeohash encodes a coordinate into a geohash of the given precision (1-12)
func EncodeGeohash(lat, lng float64, precision int) string {
	if precision < 1 {
		precision = 1
	}
	if precision > 12 {
		precision = 12
	}

	latLo, latHi := -90.0, 90.0
	lngLo, lngHi := -180.0, 180.0

	out := make([]byte, 0, precision)
	even := true
	idx, n := 0, 0
	for len(out) < precision {
		idx <<= 1
		if even {
			mid := (lngLo + lngHi) / 2
			if lng > mid {
				idx |= 1
				lngLo = mid
			} else {
				lngHi = mid
			}
		} else {
			mid := (latLo + latHi) / 2
			if lat > mid {
				idx |= 1
				latLo = mid
			} else {
				latHi = mid
			}
		}
		even = !even

		n++
		if n == 5 {
			out = append(out, geohashAlphabet[idx])
			idx, n = 0, 0
		}
	}
	return string(out)
}

// GeohashCellSize returns the approximate cell width in meters for a precision
func GeohashCellSize(precision int) float64 {
	if precision < 1 || precision >= len(geohashCellMeters) {
		return 0
	}
	return geohashCellMeters[precision]
}

// GeohashPrecisionForDistance returns the coarsest precision whose cells are no wider than distanceMeters
func GeohashPrecisionForDistance(distanceMeters float64) int {
	for p := 1; p < len(geohashCellMeters); p++ {
		if geohashCellMeters[p] <= distanceMeters {
			return p
		}
	}
	return 12
}
