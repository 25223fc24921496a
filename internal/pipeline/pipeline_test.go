package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/emailharvester/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, harvest *model.Harvest) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, harvest *model.Harvest) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, harvest)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	p := New()
	if len(p.StepNames()) != 0 {
		t.Errorf("expected no steps, got %v", p.StepNames())
	}
	if p.logger == nil {
		t.Error("expected non-nil logger")
	}
	if p := New(WithLogger(nil)); p.logger == nil {
		t.Error("nil logger should fall back to the default")
	}
}

// TestPipelineStepNames tests step registration order.
func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddSteps(&mockStep{name: "collect"})
	p.AddSteps(&mockStep{name: "scan"}, &mockStep{name: "verify"})

	if got := p.StepNames(); !slices.Equal(got, []string{"collect", "scan", "verify"}) {
		t.Errorf("unexpected names: %v", got)
	}
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{
				name: name,
				doFunc: func(context.Context, *model.Harvest) error {
					order = append(order, name)
					return nil
				},
			}
		}

		p := New()
		p.AddSteps(record("step-1"), record("step-2"))

		harvest := model.NewHarvest()
		if err := p.Execute(context.Background(), harvest); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(order, []string{"step-1", "step-2"}) {
			t.Errorf("wrong execution order: %v", order)
		}
		if !slices.Equal(harvest.PerformedSteps, []string{"step-1", "step-2"}) {
			t.Errorf("unexpected performed steps: %v", harvest.PerformedSteps)
		}
	})

	t.Run("stops on first error and records it", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		second := &mockStep{name: "should-not-run"}

		p := New()
		p.AddSteps(&mockStep{
			name: "failing-step",
			doFunc: func(context.Context, *model.Harvest) error {
				return expectedErr
			},
		}, second)

		harvest := model.NewHarvest()
		err := p.Execute(context.Background(), harvest)

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if second.callCount != 0 {
			t.Error("second step should not have been called")
		}
		if !errors.Is(harvest.Error, expectedErr) || harvest.ErrorMessage != expectedErr.Error() {
			t.Errorf("error not recorded on harvest: %v %q", harvest.Error, harvest.ErrorMessage)
		}
		if len(harvest.PerformedSteps) != 0 {
			t.Errorf("failed step should not be recorded as performed: %v", harvest.PerformedSteps)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "should-not-run"}
		p := New()
		p.AddSteps(step)

		harvest := model.NewHarvest()
		err := p.Execute(ctx, harvest)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step should not have been called")
		}
		if !harvest.Cancelled {
			t.Error("harvest.Cancelled should be true")
		}
	})

	t.Run("marks cancellation during a step", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		p := New()
		p.AddSteps(&mockStep{
			name: "interrupted",
			doFunc: func(ctx context.Context, _ *model.Harvest) error {
				cancel()
				return ctx.Err()
			},
		})

		harvest := model.NewHarvest()
		if err := p.Execute(ctx, harvest); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if !harvest.Cancelled {
			t.Error("harvest.Cancelled should be true")
		}
	})
}
