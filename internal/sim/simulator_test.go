package sim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCurrentStaysWithinClamps(t *testing.T) {
	sim := NewWithSource(rand.NewSource(1), time.Now)

	names := []string{
		"Bureau Principal",
		"Salle de Réunion Alpha",
		"Open Space Dev",
		"Cafétéria",
		"Salle Serveur",
		"Unknown Room",
	}
	for _, name := range names {
		for i := 0; i < 500; i++ {
			r := sim.Current(name)
			assert.GreaterOrEqual(t, r.CO2, float64(MinCO2), "CO2 below clamp for %s", name)
			assert.LessOrEqual(t, r.CO2, float64(MaxCO2), "CO2 above clamp for %s", name)
			assert.GreaterOrEqual(t, r.Humidity, float64(MinHumidity), "humidity below clamp for %s", name)
			assert.LessOrEqual(t, r.Humidity, float64(MaxHumidity), "humidity above clamp for %s", name)
		}
	}
}

func TestSeriesCadenceAndOrder(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	sim := NewWithSource(rand.NewSource(42), fixedClock(now))

	series := sim.Series("Open Space Dev", 24)
	require.Len(t, series, 48)

	for i := 1; i < len(series); i++ {
		assert.Equal(t, 30*time.Minute, series[i].RecordedAt.Sub(series[i-1].RecordedAt))
	}
	assert.Equal(t, now.Add(-24*time.Hour), series[0].RecordedAt)
}

func TestSeriesDefaultsToOneDay(t *testing.T) {
	sim := NewWithSource(rand.NewSource(7), time.Now)
	assert.Len(t, sim.Series("Bureau Principal", 0), 48)
}

func TestDeterministicWithFixedSeed(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	a := NewWithSource(rand.NewSource(99), fixedClock(now)).Series("Cafétéria", 6)
	b := NewWithSource(rand.NewSource(99), fixedClock(now)).Series("Cafétéria", 6)
	assert.Equal(t, a, b)
}

func TestProfileFallback(t *testing.T) {
	known := ProfileFor("Salle Serveur")
	assert.Equal(t, 450.0, known.BaseCO2)

	fallback := ProfileFor("Nonexistent Room")
	assert.Equal(t, defaultProfile, fallback)
}

func TestMeetingRoomSpikesDuringMeetings(t *testing.T) {
	// 10:00 carries the largest meeting offset; 3:00 carries none. Averaged
	// over many draws the jitter cancels out and the spike dominates.
	busy := time.Date(2025, 6, 16, 10, 30, 0, 0, time.UTC)
	idle := time.Date(2025, 6, 16, 3, 30, 0, 0, time.UTC)

	avg := func(clock time.Time) float64 {
		sim := NewWithSource(rand.NewSource(5), fixedClock(clock))
		var sum float64
		for i := 0; i < 200; i++ {
			sum += sim.Current("Salle de Réunion Alpha").CO2
		}
		return sum / 200
	}

	assert.Greater(t, avg(busy), avg(idle)+200)
}

func TestServerRoomTemperatureIsStable(t *testing.T) {
	sim := NewWithSource(rand.NewSource(3), time.Now)
	for i := 0; i < 200; i++ {
		r := sim.Current("Salle Serveur")
		assert.InDelta(t, 19.0, r.Temperature, 0.2)
	}
}
