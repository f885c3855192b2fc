// Package audit provides ports.AuditSink implementations that do not need a
// database: a structured log line per record and a fan-out over several sinks.
package audit

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

// LogSink writes each record as one zerolog event at info level.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Record(_ context.Context, rec domain.AuditRecord) error {
	ev := s.log.Info().
		Int64("actor_id", rec.ActorID).
		Str("actor_username", rec.ActorUsername).
		Str("action_kind", string(rec.Action)).
		Str("target_ref", rec.TargetRef).
		Str("outcome", string(rec.Outcome)).
		Time("timestamp", rec.Timestamp)
	if rec.Reason != "" {
		ev = ev.Str("reason", rec.Reason)
	}
	ev.Msg("audit")
	return nil
}

// Tee forwards every record to all sinks and joins their errors.
type Tee []ports.AuditSink

func (t Tee) Record(ctx context.Context, rec domain.AuditRecord) error {
	var errs []error
	for _, sink := range t {
		if err := sink.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ ports.AuditSink = (*LogSink)(nil)
	_ ports.AuditSink = Tee(nil)
)
