package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/emailharvester/internal/model"
)

// Step is one stage of a harvest.
type Step interface {
	// Do executes the step. Failures that concern a single URL, query or
	// verification call are absorbed by the step; a returned error aborts
	// the run.
	Do(ctx context.Context, harvest *model.Harvest) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order and stops at the first failure.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddSteps appends steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs the steps in sequence. Cancellation is checked between
// steps; a cancelled or failed run is recorded on harvest and the error is
// returned.
func (p *Pipeline) Execute(ctx context.Context, harvest *model.Harvest) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("harvest cancelled", "before_step", step.Name())
			harvest.Cancelled = true
			return err
		}

		start := time.Now()
		if err := step.Do(ctx, harvest); err != nil {
			p.logger.Error("step failed", "step", step.Name(), "error", err)
			harvest.Error = err
			harvest.ErrorMessage = err.Error()
			if ctx.Err() != nil {
				harvest.Cancelled = true
			}
			return err
		}

		p.logger.Debug("step completed", "step", step.Name(), "elapsed", time.Since(start))
		harvest.PerformedSteps = append(harvest.PerformedSteps, step.Name())
	}

	return nil
}
