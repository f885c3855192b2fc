package ports

import (
	"context"

	"github.com/programacion-segura/secure-api/internal/core/domain"
)

// AuditSink appends records to the audit trail. Callers treat errors as
// non-fatal.
type AuditSink interface {
	Record(ctx context.Context, rec domain.AuditRecord) error
}
