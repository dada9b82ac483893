package tasks

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"chat-relay/internal/engine"
	"chat-relay/internal/metrics"
)

// StatsReporter periodically logs an engine snapshot and refreshes the
// state gauges.
type StatsReporter struct {
	eng *engine.Engine
	log zerolog.Logger
	c   *cron.Cron
}

func NewStatsReporter(eng *engine.Engine, log zerolog.Logger) *StatsReporter {
	return &StatsReporter{eng: eng, log: log}
}

// Start schedules the reporter to run every minute.
func (s *StatsReporter) Start() error {
	s.c = cron.New()

	_, err := s.c.AddFunc("* * * * *", s.report)
	if err != nil {
		return err
	}

	s.c.Start()
	return nil
}

// Stop halts the schedule; a running report finishes first.
func (s *StatsReporter) Stop() {
	if s.c != nil {
		<-s.c.Stop().Done()
	}
}

func (s *StatsReporter) report() {
	stats := s.eng.Stats()

	metrics.RoomsActive.Set(float64(stats.Rooms))
	metrics.MessagesStored.Set(float64(stats.Messages))

	s.log.Info().
		Int("connections", stats.Connections).
		Int("rooms", stats.Rooms).
		Int("messages", stats.Messages).
		Int("typing", stats.Typing).
		Msg("engine stats")
}
