package geo

import (
	"math"
	"testing"
)

func TestDistanceKM(t *testing.T) {
	cases := []struct {
		name      string
		a, b      Point
		want      float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         Point{Lat: 12.9716, Lng: 77.5946},
			b:         Point{Lat: 12.9716, Lng: 77.5946},
			want:      0,
			tolerance: 0.001,
		},
		{
			name:      "bengaluru to mysuru",
			a:         Point{Lat: 12.9716, Lng: 77.5946},
			b:         Point{Lat: 12.2958, Lng: 76.6394},
			want:      128.0,
			tolerance: 2.0,
		},
		{
			name:      "across the equator",
			a:         Point{Lat: 1.0, Lng: 0},
			b:         Point{Lat: -1.0, Lng: 0},
			want:      222.4,
			tolerance: 0.5,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DistanceKM(tc.a, tc.b)
			if math.Abs(got-tc.want) > tc.tolerance {
				t.Fatalf("expected ~%.1f km, got %.3f km", tc.want, got)
			}
		})
	}
}

func TestDistanceKMSymmetric(t *testing.T) {
	a := Point{Lat: 28.6139, Lng: 77.2090}
	b := Point{Lat: 19.0760, Lng: 72.8777}
	if math.Abs(DistanceKM(a, b)-DistanceKM(b, a)) > 1e-9 {
		t.Fatal("distance must be symmetric")
	}
}
