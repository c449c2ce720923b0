package clinicalnote

import (
	"context"

	"github.com/rs/zerolog"
)

type logSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that only logs each record. It backs dry runs.
func NewLogSink(logger zerolog.Logger) Sink {
	return &logSink{logger: logger}
}

func (s *logSink) Append(_ context.Context, records []Record) error {
	for _, rec := range records {
		s.logger.Info().
			Str("pid", rec.PatientID.String()).
			Str("encounter", rec.EncounterID).
			Time("encountered_at", rec.EncounteredAt).
			Str("date", rec.Date.String()).
			Int("body_len", len(rec.Body)).
			Str("body", rec.Body).
			Msg("clinical note")
	}
	return nil
}
