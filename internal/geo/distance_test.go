package geo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/mapmates/backend/internal/geo"
)

type place struct {
	name     string
	lat, lng float64
}

func (p place) Coordinates() (float64, float64) { return p.lat, p.lng }

func TestDistance_SamePointIsZero(t *testing.T) {
	d := geo.Distance(37.7749, -122.4194, 37.7749, -122.4194)

	assert.Equal(t, 0.0, geo.Round2(d))
}

func TestDistance_SanFranciscoToLosAngeles(t *testing.T) {
	// Roughly 347 miles as the crow flies.
	d := geo.Distance(37.7749, -122.4194, 34.0522, -118.2437)

	assert.InDelta(t, 347, d, 5)
}

func TestDistance_Symmetric(t *testing.T) {
	a := geo.Distance(-6.2, 106.816, -6.9175, 107.6191)
	b := geo.Distance(-6.9175, 107.6191, -6.2, 106.816)

	assert.InDelta(t, a, b, 1e-9)
	assert.Greater(t, a, 0.0)
}

func TestDistance_AntipodesAreHalfACircumference(t *testing.T) {
	half := math.Pi * geo.EarthRadiusMiles

	for lat := -90.0; lat <= 90; lat += 0.5 {
		for lng := -180.0; lng <= 180; lng += 0.5 {
			d := geo.Distance(lat, lng, -lat, lng+180)
			if math.IsNaN(d) || d < 0 {
				t.Fatalf("Distance(%v, %v, %v, %v) = %v", lat, lng, -lat, lng+180, d)
			}
			if !assert.InDelta(t, half, d, 0.01, "lat=%v lng=%v", lat, lng) {
				return
			}
		}
	}
}

func TestDistance_NearAntipodeExample(t *testing.T) {
	d := geo.Distance(-88.5, -180, 88.5, 0)

	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, math.Pi*geo.EarthRadiusMiles, d, 0.01)
}

func TestSortByDistance_AntipodeSortsLast(t *testing.T) {
	items := []place{
		{"antipode", -88.5, -180},
		{"near", 88, 0},
	}

	geo.SortByDistance(items, 88.5, 0)

	assert.Equal(t, "near", items[0].name)
	assert.Equal(t, "antipode", items[1].name)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, geo.Round2(1.234))
	assert.Equal(t, 1.24, geo.Round2(1.2351))
}

func TestSortByDistance_NearestFirst(t *testing.T) {
	items := []place{
		{"la", 34.0522, -118.2437},
		{"oakland", 37.8044, -122.2712},
		{"sf", 37.7749, -122.4194},
	}

	geo.SortByDistance(items, 37.7749, -122.4194)

	assert.Equal(t, "sf", items[0].name)
	assert.Equal(t, "oakland", items[1].name)
	assert.Equal(t, "la", items[2].name)
}

func TestSortByDistance_TiesKeepInputOrder(t *testing.T) {
	items := []place{
		{"first", 10, 10},
		{"far", 50, 50},
		{"second", 10, 10},
		{"third", 10, 10},
	}

	geo.SortByDistance(items, 0, 0)

	assert.Equal(t, []string{"first", "second", "third", "far"},
		[]string{items[0].name, items[1].name, items[2].name, items[3].name})
}

func TestSortByDistance_Empty(t *testing.T) {
	var items []place

	geo.SortByDistance(items, 0, 0)

	assert.Empty(t, items)
}
