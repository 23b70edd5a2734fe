// Package geo computes great-circle distances and proximity ordering.
package geo

import (
	"math"
	"sort"
)

// EarthRadiusMiles is the mean Earth radius used by Distance.
const EarthRadiusMiles = 3959.0

// Distance returns the haversine great-circle distance in miles between two
// points given in decimal degrees. It is finite and non-negative for every
// finite input, antipodal pairs included.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push a just outside [0, 1] near antipodes.
	a = math.Max(0, math.Min(1, a))
	c := 2 * math.Asin(math.Sqrt(a))
	return EarthRadiusMiles * c
}

// Round2 rounds miles to two decimal places for display.
func Round2(miles float64) float64 {
	return math.Round(miles*100) / 100
}

// Point is anything with a position.
type Point interface {
	Coordinates() (lat, lng float64)
}

// SortByDistance sorts items nearest-first from (lat, lng). Items at equal
// distance keep their input order.
func SortByDistance[T Point](items []T, lat, lng float64) {
	dist := make(map[int]float64, len(items))
	idx := make([]int, len(items))
	for i, it := range items {
		idx[i] = i
		pLat, pLng := it.Coordinates()
		dist[i] = Distance(lat, lng, pLat, pLng)
	}
	sort.SliceStable(idx, func(a, b int) bool { return dist[idx[a]] < dist[idx[b]] })

	sorted := make([]T, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
