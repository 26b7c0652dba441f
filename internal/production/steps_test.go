package production_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OGThorhunter/craved-artisan-production/internal/production"
)

func TestStepLibrary_Defaults(t *testing.T) {
	library := production.NewStepLibrary()

	steps := library.StepsFor("prod-anything")
	require.Len(t, steps, 6)
	for i, step := range steps {
		assert.Equal(t, i+1, step.Number)
		assert.Equal(t, production.StepPending, step.Status)
	}
}

func TestStepLibrary_OverrideValidation(t *testing.T) {
	tests := []struct {
		name  string
		steps []production.ProductionStep
	}{
		{name: "empty", steps: nil},
		{
			name: "gap_in_numbering",
			steps: []production.ProductionStep{
				{Number: 1, Name: "Mix"},
				{Number: 3, Name: "Bake"},
			},
		},
		{
			name: "not_one_based",
			steps: []production.ProductionStep{
				{Number: 0, Name: "Mix"},
			},
		},
		{
			name: "blank_name",
			steps: []production.ProductionStep{
				{Number: 1, Name: "   "},
			},
		},
		{
			name: "negative_duration",
			steps: []production.ProductionStep{
				{Number: 1, Name: "Mix", DurationMinutes: -5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			library := production.NewStepLibrary()
			err := library.SetOverride("prod-custom", tt.steps)
			assert.ErrorIs(t, err, production.ErrInvalidStepDefinition)
		})
	}
}

func TestStepLibrary_Override(t *testing.T) {
	library := production.NewStepLibrary()

	custom := []production.ProductionStep{
		{Number: 1, Name: "Temper chocolate", DurationMinutes: 40, Status: production.StepComplete},
		{Number: 2, Name: "Mold", DurationMinutes: 15},
	}
	require.NoError(t, library.SetOverride("prod-truffle", custom))

	steps := library.StepsFor("prod-truffle")
	require.Len(t, steps, 2)
	assert.Equal(t, "Temper chocolate", steps[0].Name)
	// Statuses on the override definition are ignored; runs start fresh.
	assert.Equal(t, production.StepPending, steps[0].Status)

	// Other products keep the default workflow.
	assert.Len(t, library.StepsFor("prod-other"), 6)

	library.RemoveOverride("prod-truffle")
	assert.Len(t, library.StepsFor("prod-truffle"), 6)
}

func TestStepLibrary_OverrideAfterRunSeeded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Viewing the batches seeds the product's run with the defaults.
	batches, err := env.pipeline.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Steps, 6)

	require.NoError(t, env.pipeline.Steps.SetOverride(productSourdough, []production.ProductionStep{
		{Number: 1, Name: "Mix", DurationMinutes: 10},
		{Number: 2, Name: "Bake", DurationMinutes: 40},
	}))

	// No work has been recorded, so the override applies immediately.
	batches, err = env.pipeline.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches[0].Steps, 2)
	assert.Equal(t, "Mix", batches[0].Steps[0].Name)
}

func TestStepLibrary_OverrideAppliesOnRework(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.pipeline.Machine.StartStep(ctx, productSourdough, 1))

	require.NoError(t, env.pipeline.Steps.SetOverride(productSourdough, []production.ProductionStep{
		{Number: 1, Name: "Assemble", DurationMinutes: 30},
	}))

	// A run with work in it keeps its workflow until it is reset.
	batches, err := env.pipeline.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches[0].Steps, 6)

	_, err = env.pipeline.Rework.SendBack(ctx, env.orderA.ID, "wrong pan size")
	require.NoError(t, err)

	batches, err = env.pipeline.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches[0].Steps, 1)
	assert.Equal(t, "Assemble", batches[0].Steps[0].Name)
	assert.Equal(t, production.StepPending, batches[0].Steps[0].Status)
}

func TestStepLibrary_OverrideDrivesBatchRun(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.pipeline.Steps.SetOverride(productSourdough, []production.ProductionStep{
		{Number: 1, Name: "Mix", DurationMinutes: 20},
		{Number: 2, Name: "Bake", DurationMinutes: 45},
	}))

	advanced := env.completeAllSteps(t, productSourdough)
	assert.Len(t, advanced, 2)
}
