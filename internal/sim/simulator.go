// Package sim generates synthetic air-quality readings for simulation
// sensors. Profiles are static configuration keyed by sensor display name;
// values follow a per-hour occupancy pattern plus bounded jitter. Nothing
// persists between calls: two draws at the same hour are independent.
package sim

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

// CO2 clamp bounds in ppm.
const (
	MinCO2 = 400
	MaxCO2 = 1500
)

// Humidity clamp bounds in percent.
const (
	MinHumidity = 30
	MaxHumidity = 70
)

// Profile describes the baseline climate of a monitored space.
type Profile struct {
	BaseCO2         float64
	BaseTemperature float64
	BaseHumidity    float64
	OccupancyFactor float64
}

// Reading is one generated measurement.
type Reading struct {
	CO2         float64
	Temperature float64
	Humidity    float64
	RecordedAt  time.Time
}

var profiles = map[string]Profile{
	"Bureau Principal":       {BaseCO2: 650, BaseTemperature: 22.5, BaseHumidity: 45, OccupancyFactor: 0.8},
	"Salle de Réunion Alpha": {BaseCO2: 800, BaseTemperature: 23.2, BaseHumidity: 48, OccupancyFactor: 1.5},
	"Open Space Dev":         {BaseCO2: 750, BaseTemperature: 21.8, BaseHumidity: 52, OccupancyFactor: 1.2},
	"Cafétéria":              {BaseCO2: 600, BaseTemperature: 23.5, BaseHumidity: 42, OccupancyFactor: 1.0},
	"Salle Serveur":          {BaseCO2: 450, BaseTemperature: 19.0, BaseHumidity: 35, OccupancyFactor: 0.1},
}

var defaultProfile = Profile{BaseCO2: 700, BaseTemperature: 22.0, BaseHumidity: 50, OccupancyFactor: 1.0}

// Meeting rooms spike during meeting slots.
var meetingOffsets = map[int]float64{
	9: 300, 10: 400, 11: 350, 14: 400, 15: 350, 16: 300,
}

// Cafeterias peak at meal and break times, quiet otherwise.
var mealOffsets = map[int]float64{
	8: 150, 9: 100, 12: 350, 13: 300, 17: 200, 18: 150,
}

// Generic offices ramp up over working hours and drain overnight.
var officeOffsets = [24]float64{
	-200, -220, -230, -240, -230, -200,
	-150, -50, 100, 200, 250, 280,
	250, 280, 300, 280, 250, 150,
	50, -50, -100, -150, -180, -190,
}

var tempOffsets = [24]float64{
	-0.5, -0.6, -0.7, -0.7, -0.6, -0.5,
	-0.3, 0.0, 0.3, 0.5, 0.7, 0.8,
	0.8, 0.9, 1.0, 0.9, 0.7, 0.5,
	0.3, 0.0, -0.2, -0.3, -0.4, -0.5,
}

// Simulator draws readings from the profile tables. The rand source is
// injectable so tests can be deterministic.
type Simulator struct {
	rng *rand.Rand
	now func() time.Time
}

// New creates a simulator seeded from the wall clock.
func New() *Simulator {
	return &Simulator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// NewWithSource creates a simulator with a fixed seed and clock, for tests.
func NewWithSource(src rand.Source, now func() time.Time) *Simulator {
	return &Simulator{rng: rand.New(src), now: now}
}

// ProfileFor returns the profile for a sensor display name, falling back to
// the generic office profile for unknown names.
func ProfileFor(sensorName string) Profile {
	if p, ok := profiles[sensorName]; ok {
		return p
	}
	return defaultProfile
}

// Current generates a single reading for the current hour.
func (s *Simulator) Current(sensorName string) Reading {
	now := s.now().UTC()
	return s.at(sensorName, now)
}

// Series generates readings covering the past `hours` hours at a 30-minute
// cadence, oldest first.
func (s *Simulator) Series(sensorName string, hours int) []Reading {
	if hours <= 0 {
		hours = 24
	}
	now := s.now().UTC()
	start := now.Add(-time.Duration(hours) * time.Hour)

	count := hours * 2
	readings := make([]Reading, 0, count)
	for i := 0; i < count; i++ {
		at := start.Add(time.Duration(i) * 30 * time.Minute)
		readings = append(readings, s.at(sensorName, at))
	}
	return readings
}

func (s *Simulator) at(sensorName string, at time.Time) Reading {
	profile := ProfileFor(sensorName)
	hour := at.Hour()
	return Reading{
		CO2:         s.co2(sensorName, profile, hour),
		Temperature: s.temperature(sensorName, profile, hour),
		Humidity:    s.humidity(sensorName, profile),
		RecordedAt:  at,
	}
}

func (s *Simulator) co2(sensorName string, profile Profile, hour int) float64 {
	var offset float64
	switch {
	case strings.Contains(sensorName, "Salle de Réunion"):
		offset = meetingOffsets[hour]
	case strings.Contains(sensorName, "Cafétéria"):
		if v, ok := mealOffsets[hour]; ok {
			offset = v
		} else {
			offset = -100
		}
	case strings.Contains(sensorName, "Serveur"):
		offset = float64(s.rng.Intn(41) - 20)
	default:
		offset = officeOffsets[hour]
	}

	offset = math.Trunc(offset * profile.OccupancyFactor)
	jitter := float64(s.rng.Intn(101) - 50)

	value := profile.BaseCO2 + offset + jitter
	return clamp(value, MinCO2, MaxCO2)
}

func (s *Simulator) temperature(sensorName string, profile Profile, hour int) float64 {
	var variation float64
	if strings.Contains(sensorName, "Serveur") {
		// Server rooms are actively cooled and barely move.
		variation = (s.rng.Float64() - 0.5) * 0.3
	} else {
		variation = tempOffsets[hour] + (s.rng.Float64()-0.5)*0.4
	}
	return math.Round((profile.BaseTemperature+variation)*10) / 10
}

func (s *Simulator) humidity(sensorName string, profile Profile) float64 {
	var variation float64
	if strings.Contains(sensorName, "Serveur") {
		variation = (s.rng.Float64() - 0.5) * 2
	} else {
		variation = (s.rng.Float64() - 0.5) * 10
	}
	return clamp(math.Round(profile.BaseHumidity+variation), MinHumidity, MaxHumidity)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
