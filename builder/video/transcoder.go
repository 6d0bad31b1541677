package video

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/utils"
)

type Transcoder struct {
	fs      afero.Fs
	cfg     config.VideoConfig
	encoder Encoder
	logger  *slog.Logger

	// Force re-encodes inputs whose renditions are already newer than the
	// source.
	Force bool
}

func NewTranscoder(fs afero.Fs, cfg config.VideoConfig, encoder Encoder, logger *slog.Logger) *Transcoder {
	if encoder == nil {
		encoder = FFmpeg{Binary: cfg.Encoder}
	}
	return &Transcoder{fs: fs, cfg: cfg, encoder: encoder, logger: logger}
}

// Run encodes every discovered input. A missing encoder fails the whole run
// before any input is touched; inputs whose outputs collide with an earlier
// input fail with KindConflict and are not encoded.
func (t *Transcoder) Run(ctx context.Context) (*batch.Report, error) {
	inputs, err := Discover(t.fs, t.cfg)
	if err != nil {
		return nil, batch.Wrap(t.cfg.SourceRoot, batch.KindFilesystem, err)
	}
	report := batch.NewReport("videos")
	if len(inputs) == 0 {
		t.logger.Info("No raw videos found", "root", t.cfg.SourceRoot, "dir", t.cfg.RawDir)
		return report, nil
	}
	if err := t.encoder.Available(ctx); err != nil {
		return nil, batch.Wrap("", batch.KindMissingInput, err)
	}

	fmt.Printf("🎬 Transcoding %d video(s)\n", len(inputs))
	plans := make(map[string][]Job, len(inputs))
	owners := map[string]string{}
	var runnable []string
	for _, input := range inputs {
		jobs := Plan(input, t.cfg)
		if other := claim(owners, input, jobs); other != "" {
			report.AddFailure(input, batch.KindConflict, fmt.Errorf("outputs collide with %s", other))
			continue
		}
		plans[input] = jobs
		runnable = append(runnable, input)
	}
	if report.Failed() && t.cfg.FailFast {
		for _, input := range runnable {
			report.AddSkipped(input, "aborted after earlier failure")
		}
		return report, nil
	}

	opts := batch.Options{
		Concurrency: t.cfg.Concurrency,
		FailFast:    t.cfg.FailFast,
		Kind:        batch.KindExternalProcess,
	}
	report.Merge(batch.Run(ctx, "videos", runnable, opts, func(s string) string { return s }, func(ctx context.Context, input string) error {
		return t.encode(ctx, input, plans[input])
	}))
	return report, nil
}

// claim registers every output of jobs to input and returns the input that
// already owns one of them, if any.
func claim(owners map[string]string, input string, jobs []Job) string {
	for _, job := range jobs {
		if other, ok := owners[job.Output]; ok {
			return other
		}
	}
	for _, job := range jobs {
		owners[job.Output] = input
	}
	return ""
}

func (t *Transcoder) encode(ctx context.Context, input string, jobs []Job) error {
	if !t.Force && t.fresh(input, jobs) {
		return batch.Skip("up to date")
	}
	if err := t.fs.MkdirAll(filepath.Dir(jobs[0].Output), 0755); err != nil {
		return batch.Wrap(input, batch.KindFilesystem, err)
	}

	start := time.Now()
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.logger.Info("Encoding", "input", input, "output", filepath.Base(job.Output))
		if err := t.encoder.Encode(ctx, job); err != nil {
			return batch.Wrap(input, batch.KindExternalProcess, err)
		}
	}
	fmt.Printf("   ✅ %s (%d files, %s)\n", filepath.Base(input), len(jobs), time.Since(start).Round(time.Millisecond))
	return nil
}

func (t *Transcoder) fresh(input string, jobs []Job) bool {
	for _, job := range jobs {
		if !utils.IsFresh(t.fs, job.Output, input) {
			return false
		}
	}
	return true
}
