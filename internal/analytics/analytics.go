// Package analytics computes derived statistics over stored readings:
// aggregates, z-score anomaly flags, linear-trend predictions and metric
// correlations. Everything is recomputed per call; callers cache responses.
package analytics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"aerium-backend/internal/model"
)

// Points above this absolute z-score are flagged as anomalies.
const anomalyZScore = 2.0

// Metric column names.
var metricNames = []string{
	model.AlertMetricCO2,
	model.AlertMetricTemperature,
	model.AlertMetricHumidity,
}

// Summary holds mean and standard deviation for one metric.
type Summary struct {
	Metric string  `json:"metric"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// Anomaly is one reading whose value deviates more than anomalyZScore
// standard deviations from the metric mean.
type Anomaly struct {
	SensorID   int64     `json:"sensor_id"`
	Metric     string    `json:"metric"`
	Value      float64   `json:"value"`
	ZScore     float64   `json:"z_score"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Prediction is one extrapolated future point.
type Prediction struct {
	Hour        int     `json:"hour"`
	CO2         float64 `json:"co2"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// Correlation is the Pearson coefficient for one metric pair.
type Correlation struct {
	Var1        string  `json:"var1"`
	Var2        string  `json:"var2"`
	Correlation float64 `json:"correlation"`
}

func column(readings []model.Reading, metric string) []float64 {
	values := make([]float64, len(readings))
	for i, r := range readings {
		switch metric {
		case model.AlertMetricCO2:
			values[i] = r.CO2
		case model.AlertMetricTemperature:
			values[i] = r.Temperature
		case model.AlertMetricHumidity:
			values[i] = r.Humidity
		}
	}
	return values
}

// Summarize computes mean and standard deviation for every metric.
func Summarize(readings []model.Reading) []Summary {
	summaries := make([]Summary, 0, len(metricNames))
	for _, metric := range metricNames {
		values := column(readings, metric)
		s := Summary{Metric: metric, Count: len(values)}
		if len(values) > 0 {
			s.Mean = stat.Mean(values, nil)
		}
		if len(values) > 1 {
			s.StdDev = stat.StdDev(values, nil)
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// DetectAnomalies flags readings whose metric value deviates more than two
// standard deviations from the mean. Metrics with fewer than three points or
// zero variance produce no flags.
func DetectAnomalies(readings []model.Reading) []Anomaly {
	var anomalies []Anomaly
	for _, metric := range metricNames {
		values := column(readings, metric)
		if len(values) < 3 {
			continue
		}
		mean := stat.Mean(values, nil)
		std := stat.StdDev(values, nil)
		if std == 0 {
			continue
		}
		for i, v := range values {
			z := (v - mean) / std
			if math.Abs(z) > anomalyZScore {
				anomalies = append(anomalies, Anomaly{
					SensorID:   readings[i].SensorID,
					Metric:     metric,
					Value:      v,
					ZScore:     z,
					RecordedAt: readings[i].RecordedAt,
				})
			}
		}
	}
	return anomalies
}

// Predict fits a straight line to each metric over time and extrapolates it
// hourly for the requested horizon. At least two readings are required.
func Predict(readings []model.Reading, hours int) []Prediction {
	if len(readings) < 2 || hours <= 0 {
		return nil
	}

	// Hours since the first reading, as the regression x axis.
	origin := readings[0].RecordedAt
	xs := make([]float64, len(readings))
	for i, r := range readings {
		xs[i] = r.RecordedAt.Sub(origin).Hours()
	}

	fit := func(metric string) (alpha, beta float64) {
		return stat.LinearRegression(xs, column(readings, metric), nil, false)
	}
	co2A, co2B := fit(model.AlertMetricCO2)
	tmpA, tmpB := fit(model.AlertMetricTemperature)
	humA, humB := fit(model.AlertMetricHumidity)

	last := xs[len(xs)-1]
	predictions := make([]Prediction, 0, hours)
	for h := 1; h <= hours; h++ {
		x := last + float64(h)
		predictions = append(predictions, Prediction{
			Hour:        h,
			CO2:         round1(co2A + co2B*x),
			Temperature: round1(tmpA + tmpB*x),
			Humidity:    round1(humA + humB*x),
		})
	}
	return predictions
}

// Correlate computes the Pearson coefficient for each metric pair. Pairs
// where either column has zero variance are omitted, so constant data never
// yields NaN entries.
func Correlate(readings []model.Reading) []Correlation {
	if len(readings) < 3 {
		return nil
	}

	var correlations []Correlation
	for i := 0; i < len(metricNames); i++ {
		for j := i + 1; j < len(metricNames); j++ {
			a := column(readings, metricNames[i])
			b := column(readings, metricNames[j])
			if stat.StdDev(a, nil) == 0 || stat.StdDev(b, nil) == 0 {
				continue
			}
			correlations = append(correlations, Correlation{
				Var1:        metricNames[i],
				Var2:        metricNames[j],
				Correlation: stat.Correlation(a, b, nil),
			})
		}
	}
	return correlations
}

// MovingAverage smooths one metric with a trailing window of the given size.
// The result has one point per reading; early points average what is
// available.
func MovingAverage(readings []model.Reading, metric string, window int) []float64 {
	if window <= 0 {
		window = 1
	}
	values := column(readings, metric)
	out := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		out[i] = stat.Mean(values[start:i+1], nil)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
