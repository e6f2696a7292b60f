package services

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openhaus/flowengine/pkg/flow"
	"github.com/openhaus/flowengine/pkg/models"
	"github.com/openhaus/flowengine/pkg/otelhelper"
	"github.com/openhaus/flowengine/pkg/persistence"
)

// Runner assembles the batch the external rule-evaluation runner polls: every
// enabled, non-draft automation with its validation verdict and per-trigger
// execution paths. The read path performs no writes and needs no locking;
// concurrent pollers simply see the last committed state.
type Runner struct {
	persistence persistence.Persistence
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewRunner creates the batch assembler. tracer may be nil when tracing is
// not configured.
func NewRunner(p persistence.Persistence, tracer trace.Tracer, logger *slog.Logger) *Runner {
	return &Runner{persistence: p, tracer: tracer, logger: logger}
}

// RunnerAutomation is one automation as handed to the runner. When FlowValid
// is false the runner must skip it; ValidationErrors says exactly why.
type RunnerAutomation struct {
	ID               string                         `json:"id"`
	Name             string                         `json:"name"`
	FlowValid        bool                           `json:"flow_valid"`
	ValidationErrors []string                       `json:"validation_errors"`
	ExecutionPaths   map[string]*flow.ExecutionPath `json:"execution_paths"`
}

// ActiveAutomations returns one page of enabled, non-draft automations,
// validated and resolved. Each automation is computed inside its own failure
// boundary: a malformed graph, an unexpected cycle or a missing entity marks
// that one automation invalid and never suppresses the rest of the batch.
func (r *Runner) ActiveAutomations(ctx context.Context, limit, offset int) ([]*RunnerAutomation, error) {
	var span trace.Span

	if r.tracer != nil {
		ctx, span = otelhelper.StartSpan(ctx, r.tracer, "runner.active_automations",
			attribute.Int("page.limit", limit),
			attribute.Int("page.offset", offset),
		)
		defer span.End()
	}

	if limit <= 0 {
		limit = 50
	}

	enabled := true
	isDraft := false

	result, err := r.persistence.AutomationRepository().List(ctx, persistence.ListAutomationsOptions{
		Limit:   limit,
		Offset:  offset,
		Enabled: &enabled,
		IsDraft: &isDraft,
	})
	if err != nil {
		if span != nil {
			otelhelper.SetError(span, err)
		}

		return nil, fmt.Errorf("failed to list active automations: %w", err)
	}

	batch := make([]*RunnerAutomation, 0, len(result.Automations))
	for _, automation := range result.Automations {
		batch = append(batch, r.assemble(ctx, automation))
	}

	return batch, nil
}

// assemble validates and resolves one automation, converting any error or
// panic into an annotated invalid entry.
func (r *Runner) assemble(ctx context.Context, automation *models.Automation) (out *RunnerAutomation) {
	out = &RunnerAutomation{
		ID:               automation.ID,
		Name:             automation.Name,
		ValidationErrors: []string{},
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.ErrorContext(ctx, "panic while assembling automation",
				"automation_id", automation.ID,
				"panic", recovered)

			out.FlowValid = false
			out.ValidationErrors = []string{fmt.Sprintf("failed to resolve execution paths: %v", recovered)}
			out.ExecutionPaths = nil
		}
	}()

	if automation.Flow == nil {
		out.ValidationErrors = []string{"automation has no flow metadata"}

		return out
	}

	valid, violations := flow.Validate(automation.Flow.Nodes, automation.Flow.Edges)
	if !valid {
		out.ValidationErrors = violations

		return out
	}

	paths, err := flow.Resolve(
		automation.Flow.Nodes,
		automation.Flow.Edges,
		automation.Triggers,
		automation.Conditions,
		automation.Actions,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to resolve execution paths",
			"automation_id", automation.ID,
			"error", err)

		out.ValidationErrors = []string{err.Error()}

		return out
	}

	out.FlowValid = true
	out.ExecutionPaths = paths

	return out
}
