package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/programacion-segura/secure-api/internal/api/metrics"
	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

const auditWriteTimeout = 3 * time.Second

// Auditor writes one audit record per sensitive action. Writes are
// synchronous; a failed write is logged and counted, never returned.
type Auditor struct {
	sink ports.AuditSink
	log  zerolog.Logger
	now  func() time.Time
}

func NewAuditor(sink ports.AuditSink, log zerolog.Logger) *Auditor {
	return &Auditor{
		sink: sink,
		log:  log.With().Str("component", "auditor").Logger(),
		now:  time.Now,
	}
}

// Record classifies the result of an audited action and appends it to the
// trail. err is what the operation returned to its caller.
func (a *Auditor) Record(ctx context.Context, caller domain.Principal, d domain.Decision, target string, err error) {
	if !d.Action.Audited() {
		return
	}
	outcome, reason := classify(d, err)
	rec := domain.AuditRecord{
		ActorID:       caller.ID,
		ActorUsername: caller.Username,
		Action:        d.Action,
		TargetRef:     target,
		Outcome:       outcome,
		Reason:        reason,
		Timestamp:     a.now().UTC(),
	}
	metrics.AuditRecordsTotal.WithLabelValues(string(rec.Action), string(rec.Outcome)).Inc()

	// The request may already be cancelled by a disconnecting client.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if werr := a.sink.Record(wctx, rec); werr != nil {
		metrics.AuditWriteFailuresTotal.WithLabelValues(string(rec.Action)).Inc()
		a.log.Warn().
			Err(werr).
			Str("action", string(rec.Action)).
			Str("target", rec.TargetRef).
			Str("outcome", string(rec.Outcome)).
			Msg("failed to write audit record")
	}
}

func classify(d domain.Decision, err error) (domain.Outcome, string) {
	if !d.Allowed {
		return domain.OutcomeDenied, d.Err().Error()
	}
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return domain.OutcomeFailed, de.Message
		}
		return domain.OutcomeFailed, "internal error"
	}
	return domain.OutcomeAllowed, ""
}
