package pipeline

import (
	"context"
	"fmt"
	"time"

	"coinetl/internal/etl/loader"
	"coinetl/internal/etl/market"
	"coinetl/internal/etl/notifier"
	"coinetl/internal/etl/snapshot"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// State is the position of a run in the extract, load, notify sequence.
type State string

const (
	StateStart      State = "start"
	StateExtracting State = "extracting"
	StateLoading    State = "loading"
	StateNotifying  State = "notifying"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// StageError is the failure of one stage. It unwraps to the component error,
// so errors.Is works against snapshot.ErrSourceUnavailable, loader.ErrLoad and
// notifier.ErrDelivery.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result is the terminal outcome of one run.
type Result struct {
	State    State // StateDone or StateFailed
	Stage    State // stage that failed, empty on success
	Err      error // *StageError when failed
	Rows     int   // rows extracted
	Duration time.Duration
}

func (r Result) OK() bool { return r.State == StateDone }

type Extractor interface {
	Extract(ctx context.Context, perPage, page int) (*snapshot.Artifact, error)
}

type Loader interface {
	EnsureDatabase(ctx context.Context) error
	Open(ctx context.Context) (loader.Session, error)
}

type Notifier interface {
	Notify(ctx context.Context, subject, htmlBody, snapshotCSV, dateLabel string) error
}

// Options are the per-run parameters taken from config.
type Options struct {
	Table        string
	Database     string
	PerPage      int
	Page         int
	StageTimeout time.Duration // load and notify deadline; zero disables
}

type Pipeline struct {
	opts      Options
	extractor Extractor
	loader    Loader
	notifier  Notifier
	clock     clockwork.Clock
	logger    *zap.Logger
}

func New(opts Options, ex Extractor, ld Loader, nt Notifier, clock clockwork.Clock, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		opts:      opts,
		extractor: ex,
		loader:    ld,
		notifier:  nt,
		clock:     clock,
		logger:    logger,
	}
}

// Run executes one extract, load, notify pass and always returns a terminal
// result. A failed stage stops the run, so a load failure sends no email.
func (p *Pipeline) Run(ctx context.Context) (res Result) {
	started := p.clock.Now()
	log := p.logger.With(zap.String("run_id", started.Format(market.TimestampLayout)))
	res.State = StateStart
	log.Info("pipeline run started")

	defer func() {
		if r := recover(); r != nil {
			res = p.fail(log, res, res.State, fmt.Errorf("panic: %v", r))
		}
		res.Duration = p.clock.Since(started)

		if res.OK() {
			log.Info("pipeline completed successfully", zap.Int("rows", res.Rows), zap.Duration("elapsed", res.Duration))
		} else {
			log.Error("pipeline run failed", zap.String("stage", string(res.Stage)), zap.Duration("elapsed", res.Duration), zap.Error(res.Err))
		}
	}()

	res.State = StateExtracting
	var art *snapshot.Artifact
	err := p.timed(log, StateExtracting, func() (err error) {
		art, err = p.extractor.Extract(ctx, p.opts.PerPage, p.opts.Page)
		return err
	})
	if err != nil {
		return p.fail(log, res, StateExtracting, err)
	}
	res.Rows = len(art.Rows)

	res.State = StateLoading
	if err := p.timed(log, StateLoading, func() error { return p.load(ctx, log, art) }); err != nil {
		return p.fail(log, res, StateLoading, err)
	}

	res.State = StateNotifying
	if err := p.timed(log, StateNotifying, func() error { return p.notify(ctx, art) }); err != nil {
		return p.fail(log, res, StateNotifying, err)
	}

	res.State = StateDone
	return res
}

func (p *Pipeline) load(ctx context.Context, log *zap.Logger, art *snapshot.Artifact) error {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()

	if err := p.loader.EnsureDatabase(ctx); err != nil {
		return err
	}

	sess, err := p.loader.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("failed to close database session", zap.Error(err))
		}
	}()

	if err := sess.EnsureTable(ctx, p.opts.Table); err != nil {
		return err
	}
	return sess.UpsertDaily(ctx, p.opts.Table, art.Rows, art.CapturedAt)
}

func (p *Pipeline) notify(ctx context.Context, art *snapshot.Artifact) error {
	body, err := notifier.RenderReport(notifier.ReportData{
		DateLabel:   art.DateLabel,
		Table:       p.opts.Table,
		Database:    p.opts.Database,
		RowCount:    len(art.Rows),
		GainersHTML: art.GainersHTML,
		LosersHTML:  art.LosersHTML,
	})
	if err != nil {
		return err
	}

	ctx, cancel := p.stageContext(ctx)
	defer cancel()
	return p.notifier.Notify(ctx, notifier.Subject(art.DateLabel), body, art.CSV, art.DateLabel)
}

func (p *Pipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.StageTimeout > 0 {
		return context.WithTimeout(ctx, p.opts.StageTimeout)
	}
	return context.WithCancel(ctx)
}

func (p *Pipeline) timed(log *zap.Logger, stage State, fn func() error) error {
	start := p.clock.Now()
	err := fn()
	log.Debug("stage finished", zap.String("stage", string(stage)), zap.Duration("elapsed", p.clock.Since(start)))
	return err
}

func (p *Pipeline) fail(log *zap.Logger, res Result, stage State, err error) Result {
	log.Error("stage failed", zap.String("stage", string(stage)), zap.Error(err))
	res.State = StateFailed
	res.Stage = stage
	res.Err = &StageError{Stage: stage, Err: err}
	return res
}
