// Package runner executes checks: resolve the query, run it, classify any
// finding and deliver the alert. Each check ends in exactly one terminal
// state and a failing check never stops the run.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/vigil/checks"
	"github.com/teranos/vigil/classifier"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/logger"
	"github.com/teranos/vigil/notify"
	"github.com/teranos/vigil/resolver"
	"github.com/teranos/vigil/warehouse"
)

// Resolver synthesizes SQL for checks without an explicit query
type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (string, error)
}

// Classifier turns a non-empty result set into a finding
type Classifier interface {
	Classify(ctx context.Context, req classifier.Request) (*classifier.Classification, error)
}

// Config wires the runner's collaborators
type Config struct {
	Store      warehouse.Store
	Resolver   Resolver
	Classifier Classifier
	Notifier   notify.Notifier // nil disables delivery

	// Concurrency is the number of checks in flight. 0 or 1 runs them
	// sequentially in definition order.
	Concurrency int

	QueryTimeout  time.Duration
	NotifyTimeout time.Duration

	// ContextLookbackDays > 0 gathers table stats and recent event volume
	// once per run and hands them to every classification.
	ContextLookbackDays int

	Logger *zap.SugaredLogger
}

// Runner runs checks
type Runner struct {
	store         warehouse.Store
	resolver      Resolver
	classifier    Classifier
	notifier      notify.Notifier
	concurrency   int
	queryTimeout  time.Duration
	notifyTimeout time.Duration
	lookbackDays  int
	now           func() time.Time
	logger        *zap.SugaredLogger
}

// New creates a runner
func New(cfg Config) *Runner {
	log := cfg.Logger
	if log == nil {
		log = logger.ComponentLogger("runner")
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		store:         cfg.Store,
		resolver:      cfg.Resolver,
		classifier:    cfg.Classifier,
		notifier:      cfg.Notifier,
		concurrency:   concurrency,
		queryTimeout:  cfg.QueryTimeout,
		notifyTimeout: cfg.NotifyTimeout,
		lookbackDays:  cfg.ContextLookbackDays,
		now:           time.Now,
		logger:        log,
	}
}

// RunAll runs every definition and returns one outcome per definition, in
// definition order. Errors of individual checks are recorded on their
// outcomes and never returned.
func (r *Runner) RunAll(ctx context.Context, defs []checks.Definition) []Outcome {
	return r.Run(ctx, defs).Outcomes
}

// Run is RunAll with the run metadata attached
func (r *Runner) Run(ctx context.Context, defs []checks.Definition) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: r.now().UTC(),
		Outcomes:  make([]Outcome, len(defs)),
	}
	ctx = logger.WithRunID(ctx, run.ID)
	log := logger.FromContext(ctx, r.logger)
	log.Infow("Starting run", logger.FieldCount, len(defs), "concurrency", r.concurrency)

	rc := r.gatherContext(ctx)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, def := range defs {
		g.Go(func() error {
			run.Outcomes[i] = r.runCheck(ctx, def, rc)
			return nil
		})
	}
	_ = g.Wait()

	run.FinishedAt = r.now().UTC()
	counts := run.Counts()
	log.Infow("Run finished",
		string(StatePassed), counts[StatePassed],
		string(StateAlerted), counts[StateAlerted],
		string(StateClassifiedSilent), counts[StateClassifiedSilent],
		string(StateFailed), counts[StateFailed],
		logger.FieldDurationMS, run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	)
	return run
}

// gatherContext is best effort: without it classification still runs.
func (r *Runner) gatherContext(ctx context.Context) *classifier.RunContext {
	if r.lookbackDays <= 0 {
		return nil
	}
	src, ok := r.store.(classifier.ContextSource)
	if !ok {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx, r.queryTimeout)
	defer cancel()

	rc, err := classifier.GatherContext(ctx, src, r.lookbackDays)
	if err != nil {
		logger.FromContext(ctx, r.logger).Warnw("Run context unavailable", logger.FieldError, err)
		return nil
	}
	return rc
}

func (r *Runner) runCheck(ctx context.Context, def checks.Definition, rc *classifier.RunContext) (out Outcome) {
	ctx = logger.WithCheck(ctx, def.Name)
	log := logger.FromContext(ctx, r.logger)
	start := time.Now()
	out = Outcome{Check: def.Name}

	defer func() {
		if p := recover(); p != nil {
			out.fail(errors.Newf("check panicked: %v", p))
		}
		out.DurationMS = time.Since(start).Milliseconds()
		if out.State == StateFailed {
			log.Errorw("Check failed",
				logger.FieldError, out.Error,
				logger.FieldErrorKind, out.ErrorKind,
				logger.FieldDurationMS, out.DurationMS,
			)
			return
		}
		log.Debugw("Check finished", logger.FieldState, out.State, logger.FieldDurationMS, out.DurationMS)
	}()

	log.Infow("Running check", "description", def.Description)

	sql, err := r.resolve(ctx, def)
	if err != nil {
		out.fail(err)
		return out
	}
	out.SQL = sql
	out.GeneratedSQL = !def.HasSQL()

	results, err := r.query(ctx, sql)
	if err != nil {
		out.fail(err)
		return out
	}
	out.Results = results
	out.RowCount = len(results)
	log.Infow(fmt.Sprintf("Found %d results", len(results)), logger.FieldRowCount, len(results))

	if len(results) == 0 {
		out.State = StatePassed
		log.Infow("No results found - check passed")
		return out
	}

	cls, err := r.classifier.Classify(ctx, classifier.Request{
		CheckName:   def.Name,
		Description: def.Description,
		Results:     results,
		Context:     rc,
	})
	if err != nil {
		out.fail(err)
		return out
	}
	out.Classification = cls
	log.Infow(fmt.Sprintf("Classification: %s (%s)", cls.Category, cls.Severity),
		logger.FieldCategory, cls.Category,
		logger.FieldSeverity, cls.Severity,
	)

	if !cls.Category.Actionable() {
		out.State = StateClassifiedSilent
		return out
	}
	out.State = StateAlerted

	if !shouldDeliver(cls, r.notifier) {
		log.Infow("No notifier configured - alert not delivered")
		return out
	}
	r.deliver(ctx, &out)
	return out
}

// shouldDeliver is the only place the alert guard is decided: a finding is
// delivered when it is not noise and there is somewhere to deliver it.
func shouldDeliver(cls *classifier.Classification, n notify.Notifier) bool {
	return cls != nil && cls.Category.Actionable() && n != nil
}

func (r *Runner) resolve(ctx context.Context, def checks.Definition) (string, error) {
	if def.HasSQL() {
		return def.SQL, nil
	}

	schemaCtx, cancel := r.withTimeout(ctx, r.queryTimeout)
	columns, err := r.store.DescribeSchema(schemaCtx)
	cancel()
	if err != nil {
		return "", err
	}

	sql, err := r.resolver.Resolve(ctx, resolver.Request{
		CheckName:   def.Name,
		Description: def.Description,
		TableRef:    r.store.TableRef().String(),
		Schema:      columns,
		Examples:    def.Examples,
	})
	if err != nil {
		return "", err
	}

	logger.FromContext(ctx, r.logger).Infow("Generated SQL", logger.FieldSQL, sql)
	return sql, nil
}

func (r *Runner) query(ctx context.Context, sql string) (warehouse.ResultSet, error) {
	ctx, cancel := r.withTimeout(ctx, r.queryTimeout)
	defer cancel()
	return r.store.Query(ctx, sql)
}

// deliver records a delivery failure on the outcome without changing its state.
func (r *Runner) deliver(ctx context.Context, out *Outcome) {
	log := logger.FromContext(ctx, r.logger)
	log.Infow("Sending alert")

	sendCtx, cancel := r.withTimeout(ctx, r.notifyTimeout)
	defer cancel()

	if err := r.notifier.Send(sendCtx, BuildAlert(out.Classification, out.Results)); err != nil {
		out.DeliveryErr = err
		out.DeliveryError = err.Error()
		log.Warnw("Alert delivery failed", logger.FieldError, err, logger.FieldErrorKind, errors.Kind(err))
		return
	}
	out.Delivered = true
}

func (r *Runner) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
