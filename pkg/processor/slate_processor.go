// Package processor runs the slate resolution pipeline for messages arriving
// over Kafka. It is the same pipeline the HTTP API runs, minus the response:
// resolve, report, capture suggestions, export, emit.
package processor

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/uruley/4HorsemenDFS/internal/export"
	"github.com/uruley/4HorsemenDFS/pkg/events"
	"github.com/uruley/4HorsemenDFS/pkg/graph"
	"github.com/uruley/4HorsemenDFS/pkg/kafka"
	"github.com/uruley/4HorsemenDFS/pkg/metrics"
	"github.com/uruley/4HorsemenDFS/pkg/report"
	"github.com/uruley/4HorsemenDFS/pkg/resolver"
	"github.com/uruley/4HorsemenDFS/pkg/suggestions"
	"github.com/uruley/4HorsemenDFS/pkg/tracing"
	"github.com/uruley/4HorsemenDFS/pkg/utils"
)

// SlateProcessor consumes slate messages and resolves them.
type SlateProcessor struct {
	resolver    *resolver.Resolver
	suggestions *suggestions.Service
	exporter    *export.Writer
	emitter     *events.Emitter
	projector   *graph.Projector
	logger      ectologger.Logger
}

// NewSlateProcessor creates a slate processor. The projector may be nil
// when graph projection is disabled.
func NewSlateProcessor(
	res *resolver.Resolver,
	sugg *suggestions.Service,
	exporter *export.Writer,
	emitter *events.Emitter,
	projector *graph.Projector,
	logger ectologger.Logger,
) *SlateProcessor {
	return &SlateProcessor{
		resolver:    res,
		suggestions: sugg,
		exporter:    exporter,
		emitter:     emitter,
		projector:   projector,
		logger:      logger,
	}
}

// ProcessMessage handles an incoming slate message. Malformed messages are
// skipped (returning nil commits them); store failures are returned so the
// consumer retries. Re-resolving a slate is safe: resolution only ever
// leaves the store the same or better informed.
func (p *SlateProcessor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.SlateProcessor.ProcessMessage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"key":    msg.Key,
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	req, err := msg.ParseSlateRequest()
	if err != nil {
		log.WithError(err).Error("Failed to parse slate message")
		return nil // poison message, don't retry
	}
	if _, err := utils.Validate(*req); err != nil {
		log.WithError(err).Error("Invalid slate message")
		return nil
	}

	log = log.WithFields(map[string]any{
		"source_name": req.SourceName,
		"records":     len(req.Records),
	})

	results, err := p.resolver.ResolveSlate(ctx, req.SourceName, req.Records)
	if err != nil {
		return err
	}

	slateReport := report.Generate(results)
	metrics.SlateMatchRate.WithLabelValues(req.SourceName).Set(slateReport.Summary.MatchRate)

	// Post-resolution steps are advisory; losing one must not force the
	// whole slate back through the consumer.
	if _, err := p.suggestions.Capture(ctx, results); err != nil {
		log.WithError(err).Error("Failed to capture alias suggestions")
	}
	if err := p.exporter.WriteReport(ctx, slateReport); err != nil {
		log.WithError(err).Error("Failed to export resolution report")
	}
	if err := p.emitter.EmitSlateResolved(ctx, req.SourceName, slateReport.Summary); err != nil {
		log.WithError(err).Error("Failed to emit slate resolved event")
	}
	if p.projector.Enabled() {
		if err := p.projector.ProjectMatches(ctx, results); err != nil {
			log.WithError(err).Error("Failed to project match results")
		}
	}

	log.WithFields(map[string]any{
		"matched":    slateReport.Summary.MatchedCount,
		"unmatched":  slateReport.Summary.UnmatchedCount,
		"ambiguous":  slateReport.Summary.AmbiguousCount,
		"match_rate": slateReport.Summary.MatchRate,
	}).Info("Processed slate")
	return nil
}
