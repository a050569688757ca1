package progress

import "log/slog"

// LogSink renders events as structured log lines. This is the default console
// presentation of a harvest run.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink wires a slog logger to the sink interface.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Consume logs one event with its non-empty fields.
func (s *LogSink) Consume(evt Event) {
	attrs := []any{slog.String("stage", string(evt.Stage))}
	if evt.Site != "" {
		attrs = append(attrs, slog.String("site", evt.Site))
	}
	if evt.Category != "" {
		attrs = append(attrs, slog.String("category", evt.Category))
	}
	if evt.URL != "" {
		attrs = append(attrs, slog.String("url", evt.URL))
	}
	if evt.Count > 0 {
		attrs = append(attrs, slog.Int("count", evt.Count))
	}
	if evt.Note != "" {
		attrs = append(attrs, slog.String("note", evt.Note))
	}

	switch evt.Stage {
	case StageReferenceFailed, StageCategorySkipped, StageRunFailed:
		s.logger.Warn("harvest progress", attrs...)
	default:
		s.logger.Info("harvest progress", attrs...)
	}
}
