package logger

import "context"

// AuditLogger records the two transition points spec.md calls out for a
// durable trail: ban-warning/hibernation state changes and fingerprint
// rotations. It is a thin, structured wrapper over Logger — there is no
// separate audit sink, just a dedicated event_type tag that is easy to grep
// or pipe into log aggregation.
type AuditLogger struct {
	logger Logger
}

// NewAuditLogger creates a new AuditLogger over the given base logger.
func NewAuditLogger(logger Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogBanWarningTransition records a risk-level or hibernation change from
// banwarning.System.Record/EnterHibernation/ExitHibernation/Reset.
func (al *AuditLogger) LogBanWarningTransition(ctx context.Context, fromLevel, toLevel string, hibernating bool, score float64) {
	al.logger.WithContext(ctx).Warn("ban warning transition",
		String("event_type", "ban_warning_transition"),
		String("from_level", fromLevel),
		String("to_level", toLevel),
		Bool("hibernating", hibernating),
		Float64("score", score),
	)
}

// LogFingerprintRotation records a fingerprint.Store rotation: the prior
// and new device triples and how many rotations have happened so far.
func (al *AuditLogger) LogFingerprintRotation(ctx context.Context, fromOS, toOS string, rotationCount int) {
	al.logger.WithContext(ctx).Info("fingerprint rotated",
		String("event_type", "fingerprint_rotation"),
		String("from_os", fromOS),
		String("to_os", toOS),
		Int("rotation_count", rotationCount),
	)
}
