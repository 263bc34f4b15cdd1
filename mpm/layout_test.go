package mpm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticleRecordLayout(t *testing.T) {
	p := Particle{
		C:       Mat2{1, 2, 3, 4},
		Pos:     Vec2{5, 6},
		Vel:     Vec2{7, 8},
		Mass:    9,
		Volume0: 10,
	}
	b := EncodeParticles([]Particle{p, p})
	require.Len(t, b, 2*ParticleStride)

	assert.Equal(t, float32(1), getF32(b[0:]))
	assert.Equal(t, float32(4), getF32(b[12:]))
	assert.Equal(t, Vec2{5, 6}, ParticlePosition(b, 1))
	assert.Equal(t, Vec2{7, 8}, ParticleVelocity(b, 1))
	assert.Equal(t, float32(9), getF32(b[ParticleStride+OffsetMass:]))
	assert.Equal(t, float32(10), getF32(b[ParticleStride+36:]))

	out := make([]Particle, 2)
	require.NoError(t, DecodeParticles(b, out))
	assert.Equal(t, p, out[1])
}

func TestDecodeRejectsShortBuffers(t *testing.T) {
	assert.Error(t, DecodeParticles(make([]byte, ParticleStride), make([]Particle, 2)))
	assert.Error(t, DecodeCells(make([]byte, 8), make([]Cell, 1)))
	assert.Error(t, DecodeMatrices(nil, make([]Mat2, 1)))
	_, err := DecodeUniforms(make([]byte, 16))
	assert.Error(t, err)
}

func TestUniformLayout(t *testing.T) {
	u := Uniforms{DT: 0.1, ParticleCount: 4096, ElasticLambda: 10, ElasticMu: 20, Gravity: -0.3, GridResolution: 64}
	b := u.Bytes()
	require.Len(t, b, UniformSize)
	assert.Equal(t, uint32(4096), le.Uint32(b[4:]))
	assert.Equal(t, uint32(64), le.Uint32(b[20:]))

	back, err := DecodeUniforms(b)
	require.NoError(t, err)
	assert.Equal(t, u, back)
}
