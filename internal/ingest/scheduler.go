package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"aerium-backend/config"
	"aerium-backend/internal/model"
	"aerium-backend/internal/sim"
	"aerium-backend/internal/store"
)

// Scheduler periodically generates readings for live simulation sensors and
// feeds them through the pipeline, so dashboards keep moving without
// hardware attached.
type Scheduler struct {
	cfg       *config.SimulatorConfig
	store     store.Store
	pipeline  *Pipeline
	simulator *sim.Simulator
	logger    *zap.Logger
}

// NewScheduler builds the background simulation ticker.
func NewScheduler(cfg *config.SimulatorConfig, st store.Store, pipeline *Pipeline, simulator *sim.Simulator, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		store:     st,
		pipeline:  pipeline,
		simulator: simulator,
		logger:    logger,
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("simulator scheduler is disabled, not starting")
		return
	}
	s.logger.Info("starting simulator scheduler", zap.Duration("interval", s.cfg.Interval))

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulator scheduler shutting down")
			return
		case <-timer.C:
			s.TickOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// TickOnce generates and ingests one reading for every live simulation
// sensor. Per-sensor failures are logged and skipped.
func (s *Scheduler) TickOnce(ctx context.Context) {
	live := true
	sensors, err := s.store.ListSensors(ctx, store.SensorFilter{
		Type:   model.SensorTypeSimulation,
		Active: &live,
	})
	if err != nil {
		s.logger.Error("failed to list simulation sensors", zap.Error(err))
		return
	}

	for i := range sensors {
		sensor := &sensors[i]
		generated := s.simulator.Current(sensor.Name)
		if _, err := s.pipeline.Ingest(ctx, sensor, generated.CO2, generated.Temperature, generated.Humidity); err != nil {
			s.logger.Error("failed to ingest simulated reading",
				zap.Int64("sensor_id", sensor.ID), zap.Error(err))
		}
	}
}
