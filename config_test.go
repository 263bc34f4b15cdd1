package lava

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSimulationConfig(t *testing.T) {
	c := DefaultSimulationConfig()
	assert.Equal(t, float32(10), c.ElasticLambda)
	assert.Equal(t, float32(20), c.ElasticMu)
	assert.Equal(t, float32(-0.3), c.Gravity)
	assert.Equal(t, float32(0.1), c.TimeStep)
	assert.False(t, c.Paused)
}

func TestSetElasticParametersClamp(t *testing.T) {
	tests := []struct {
		name       string
		lambda, mu float32
		wantLambda float32
		wantMu     float32
	}{
		{"inside", 50, 5, 50, 5},
		{"below", 1, 0.01, 10, 0.1},
		{"above", 1000, 100, 100, 20},
		{"bounds", 10, 20, 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultSimulationConfig()
			c.SetElasticLambda(tt.lambda)
			c.SetElasticMu(tt.mu)
			assert.Equal(t, tt.wantLambda, c.ElasticLambda)
			assert.Equal(t, tt.wantMu, c.ElasticMu)
		})
	}
}

func TestApplyPreset(t *testing.T) {
	c := DefaultSimulationConfig()

	require.NoError(t, c.ApplyPreset(PresetLiquid))
	assert.Equal(t, float32(100), c.ElasticLambda)
	assert.Equal(t, float32(0.1), c.ElasticMu)

	require.NoError(t, c.ApplyPreset("Solid"))
	assert.Equal(t, float32(10), c.ElasticLambda)
	assert.Equal(t, float32(20), c.ElasticMu)

	err := c.ApplyPreset("plasma")
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, float32(10), c.ElasticLambda, "failed preset must not change parameters")
}

func TestUniformsPausedHasZeroTimeStep(t *testing.T) {
	c := DefaultSimulationConfig()
	u := c.Uniforms(4096, 64)
	assert.Equal(t, float32(0.1), u.DT)
	assert.Equal(t, uint32(4096), u.ParticleCount)
	assert.Equal(t, uint32(64), u.GridResolution)
	assert.Equal(t, c.Gravity, u.Gravity)

	assert.True(t, c.TogglePause())
	u = c.Uniforms(4096, 64)
	assert.Zero(t, u.DT)
	assert.Equal(t, c.ElasticLambda, u.ElasticLambda)
	assert.Equal(t, c.ElasticMu, u.ElasticMu)

	assert.False(t, c.TogglePause())
}
