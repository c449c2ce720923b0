package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/clinicalnotes/internal/domain/clinicalnote"
)

// BatchConfig locates the two export directories.
type BatchConfig struct {
	CCDADir       string
	NotesDir      string
	CCDAExt       string
	NotesExt      string
	ProgressEvery int
}

// Summary totals one batch run. Attempted = Succeeded + Failed, and
// Unreached counts documents left untouched after cancellation.
type Summary struct {
	Total     int        `json:"total"`
	Attempted int        `json:"attempted"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Unreached int        `json:"unreached"`
	Records   int        `json:"records"`
	Failures  []*Failure `json:"failures,omitempty"`
}

// Batch walks the CCDA directory, pairs each document with its note file by
// base name and hands every file's records to the sink. Files are processed
// one at a time in name order.
type Batch struct {
	cfg    BatchConfig
	driver *Driver
	sink   clinicalnote.Sink
	logger zerolog.Logger
}

func NewBatch(cfg BatchConfig, driver *Driver, sink clinicalnote.Sink, logger zerolog.Logger) *Batch {
	if cfg.CCDAExt == "" {
		cfg.CCDAExt = ".xml"
	}
	if cfg.NotesExt == "" {
		cfg.NotesExt = ".txt"
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 100
	}
	return &Batch{cfg: cfg, driver: driver, sink: sink, logger: logger}
}

// Run processes every document. Per-file failures are logged and collected in
// the summary. The returned error is non-nil only when the CCDA directory
// cannot be listed or ctx was cancelled; in the latter case the summary
// counts the files that were never reached as unreached.
func (b *Batch) Run(ctx context.Context) (Summary, error) {
	files, err := b.documents()
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Total: len(files)}
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			sum.Unreached = sum.Total - sum.Attempted
			b.logSummary(sum)
			return sum, err
		}

		n, failure := b.processFile(ctx, name)
		sum.Attempted++
		sum.Records += n
		if failure == nil {
			sum.Succeeded++
		} else {
			sum.Failed++
			sum.Failures = append(sum.Failures, failure)
			b.logger.Error().
				Str("file", failure.File).
				Str("kind", string(failure.Kind)).
				Err(failure.Err).
				Msg("file not reconciled")
		}

		if sum.Attempted%b.cfg.ProgressEvery == 0 {
			b.logger.Info().
				Int("attempted", sum.Attempted).
				Int("succeeded", sum.Succeeded).
				Int("total", sum.Total).
				Msg("progress")
		}
	}

	b.logSummary(sum)
	return sum, nil
}

func (b *Batch) logSummary(sum Summary) {
	b.logger.Info().
		Int("total", sum.Total).
		Int("attempted", sum.Attempted).
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Int("unreached", sum.Unreached).
		Int("records", sum.Records).
		Msg("import finished")
}

// documents lists the CCDA directory, sorted by name.
func (b *Batch) documents() ([]string, error) {
	entries, err := os.ReadDir(b.cfg.CCDADir)
	if err != nil {
		return nil, fmt.Errorf("list ccda directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), b.cfg.CCDAExt) {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}

func (b *Batch) processFile(ctx context.Context, name string) (int, *Failure) {
	document, err := os.ReadFile(filepath.Join(b.cfg.CCDADir, name))
	if err != nil {
		return 0, &Failure{Kind: KindIO, File: name, Err: err}
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	noteFile, err := os.Open(filepath.Join(b.cfg.NotesDir, base+b.cfg.NotesExt))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		noteFile = nil
	case err != nil:
		return 0, &Failure{Kind: KindIO, File: name, Err: err}
	default:
		defer noteFile.Close()
	}

	var out Outcome
	if noteFile == nil {
		out = b.driver.Reconcile(ctx, name, document, nil)
	} else {
		out = b.driver.Reconcile(ctx, name, document, noteFile)
	}
	if !out.OK() {
		return 0, out.Failure
	}
	if len(out.Records) == 0 {
		return 0, nil
	}

	if err := b.sink.Append(ctx, out.Records); err != nil {
		return 0, &Failure{Kind: KindSink, File: name, Err: err}
	}
	return len(out.Records), nil
}
