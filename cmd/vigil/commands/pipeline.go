package commands

import (
	"context"
	"database/sql"

	"github.com/teranos/vigil/ai/provider"
	"github.com/teranos/vigil/ai/tracker"
	"github.com/teranos/vigil/am"
	"github.com/teranos/vigil/classifier"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/generation"
	"github.com/teranos/vigil/logger"
	"github.com/teranos/vigil/notify"
	"github.com/teranos/vigil/resolver"
	"github.com/teranos/vigil/runner"
	"github.com/teranos/vigil/warehouse"
)

// pipeline is everything one or more runs share
type pipeline struct {
	runner *runner.Runner
	store  *warehouse.SQLStore
	ledger *sql.DB
	client provider.AIClient
}

// newPipeline wires the warehouse, usage ledger, generation provider and
// notifier from configuration.
func newPipeline(ctx context.Context, cfg *am.Config) (*pipeline, error) {
	store, err := warehouse.Open(ctx, cfg.Warehouse)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open warehouse")
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	client, err := provider.NewAIClient(cfg, provider.ClientConfig{
		Logger:  logger.ComponentLogger("generation.provider"),
		Tracker: tracker.NewUsageTracker(ledger),
	})
	if err != nil {
		ledger.Close()
		store.Close()
		return nil, err
	}

	notifier, err := newNotifier(cfg)
	if err != nil {
		ledger.Close()
		store.Close()
		return nil, err
	}

	gateway := generation.New(client, generation.Config{
		Timeout:           cfg.Run.GenerationTimeout(),
		RequestsPerMinute: cfg.Generation.RequestsPerMinute,
		Logger:            logger.ComponentLogger("generation"),
		Trace:             logger.ShouldLogTrace(logger.Verbosity),
	})

	r := runner.New(runner.Config{
		Store:               store,
		Resolver:            resolver.New(gateway),
		Classifier:          classifier.New(gateway),
		Notifier:            notifier,
		Concurrency:         cfg.GetConcurrency(),
		QueryTimeout:        cfg.Run.QueryTimeout(),
		NotifyTimeout:       cfg.Run.NotifyTimeout(),
		ContextLookbackDays: cfg.Run.ContextLookbackDays,
		Logger:              logger.ComponentLogger("runner"),
	})

	logger.Logger.Debugw("Pipeline ready",
		logger.FieldProvider, client.Provider(),
		logger.FieldModel, client.Model(),
		logger.FieldTable, store.TableRef().String(),
		"notify", notifier != nil,
	)

	return &pipeline{runner: r, store: store, ledger: ledger, client: client}, nil
}

// newNotifier returns the configured notifier, or nil when alerts are off.
// The nil is untyped so the runner sees "no notifier".
func newNotifier(cfg *am.Config) (notify.Notifier, error) {
	slack := cfg.Notify.Slack
	if !slack.Enabled || slack.WebhookURL == "" {
		return nil, nil
	}
	s, err := notify.NewSlack(slack.WebhookURL, cfg.Run.NotifyTimeout())
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *pipeline) Close() error {
	ledgerErr := p.ledger.Close()
	storeErr := p.store.Close()
	if ledgerErr != nil {
		return errors.Wrap(ledgerErr, "failed to close usage ledger")
	}
	return errors.Wrap(storeErr, "failed to close warehouse")
}
