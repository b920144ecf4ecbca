package privacy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"veriloc/internal/geo"
)

func TestObfuscateCoordinate(t *testing.T) {
	t.Run("truncates to three decimals", func(t *testing.T) {
		assert.InDelta(t, 52.370, ObfuscateCoordinate(52.370216), 1e-9)
		assert.InDelta(t, 4.895, ObfuscateCoordinate(4.895168), 1e-9)
	})

	t.Run("truncates toward zero for negative values", func(t *testing.T) {
		assert.InDelta(t, -33.868, ObfuscateCoordinate(-33.868820), 1e-9)
	})

	t.Run("idempotent to resolution", func(t *testing.T) {
		for _, v := range []float64{52.370216, -33.868820, 0.123456, -0.000999, 179.999999, 0} {
			once := ObfuscateCoordinate(v)
			twice := ObfuscateCoordinate(once)
			assert.Equal(t, once, twice, "value %v drifted on second truncation", v)
		}
	})

	t.Run("point obfuscation covers both axes", func(t *testing.T) {
		p := ObfuscatePoint(geo.Point{Lat: 52.370216, Lon: -4.895168})
		assert.InDelta(t, 52.370, p.Lat, 1e-9)
		assert.InDelta(t, -4.895, p.Lon, 1e-9)
	})
}

func TestRoundDistance(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{24, 0},
		{25, 50}, // tie rounds up
		{26, 50},
		{74, 50},
		{75, 100}, // tie rounds up
		{76, 100},
		{449, 450},
		{500, 500},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%.0fm", tc.in), func(t *testing.T) {
			assert.Equal(t, tc.want, RoundDistance(tc.in))
		})
	}
}

func TestBucketForAccuracy(t *testing.T) {
	cases := []struct {
		meters float64
		want   AccuracyBucket
	}{
		{0.5, BucketExcellent},
		{5, BucketExcellent}, // boundary is inclusive
		{5.1, BucketGood},
		{20, BucketGood},
		{20.1, BucketAcceptable},
		{50, BucketAcceptable},
		{50.1, BucketPoor},
		{200, BucketPoor},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%.1fm", tc.meters), func(t *testing.T) {
			assert.Equal(t, tc.want, BucketForAccuracy(tc.meters))
		})
	}
}
