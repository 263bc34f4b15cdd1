package mpm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// GPU buffer strides in bytes. All buffers use the std430 layout of the
// WGSL kernels.
const (
	// ParticleStride: C (16) | pos (8) | vel (8) | mass (4) | volume_0 (4) | pad (8).
	ParticleStride = 48
	// CellStride: vel (8) | mass (4) | pad (4).
	CellStride = 16
	// MatStride is one column-major mat2x2<f32>.
	MatStride = 16
	// UniformSize: dt | particle_count | lambda | mu | gravity | grid_resolution | pad (8).
	UniformSize = 32
)

// Vertex attribute offsets inside a particle record, consumed by renderers.
const (
	OffsetPos  = 16
	OffsetVel  = 24
	OffsetMass = 32
)

var le = binary.LittleEndian

func putF32(b []byte, v float32) { le.PutUint32(b, math.Float32bits(v)) }
func getF32(b []byte) float32    { return math.Float32frombits(le.Uint32(b)) }

func putMat2(b []byte, m Mat2) {
	for i := range m {
		putF32(b[i*4:], m[i])
	}
}

func getMat2(b []byte) Mat2 {
	var m Mat2
	for i := range m {
		m[i] = getF32(b[i*4:])
	}
	return m
}

func checkLen(what string, have, n, stride int) error {
	if have < n*stride {
		return fmt.Errorf("mpm: %s buffer holds %d bytes, need %d", what, have, n*stride)
	}
	return nil
}

// EncodeParticles serializes ps into a new byte slice.
func EncodeParticles(ps []Particle) []byte {
	b := make([]byte, len(ps)*ParticleStride)
	EncodeParticlesInto(b, ps)
	return b
}

// EncodeParticlesInto serializes ps into b, which must be large enough.
func EncodeParticlesInto(b []byte, ps []Particle) {
	for i := range ps {
		p := &ps[i]
		r := b[i*ParticleStride:]
		putMat2(r, p.C)
		putF32(r[16:], p.Pos.X)
		putF32(r[20:], p.Pos.Y)
		putF32(r[24:], p.Vel.X)
		putF32(r[28:], p.Vel.Y)
		putF32(r[32:], p.Mass)
		putF32(r[36:], p.Volume0)
		putF32(r[40:], 0)
		putF32(r[44:], 0)
	}
}

// DecodeParticles fills ps from b.
func DecodeParticles(b []byte, ps []Particle) error {
	if err := checkLen("particle", len(b), len(ps), ParticleStride); err != nil {
		return err
	}
	for i := range ps {
		r := b[i*ParticleStride:]
		ps[i] = Particle{
			C:       getMat2(r),
			Pos:     Vec2{getF32(r[16:]), getF32(r[20:])},
			Vel:     Vec2{getF32(r[24:]), getF32(r[28:])},
			Mass:    getF32(r[32:]),
			Volume0: getF32(r[36:]),
		}
	}
	return nil
}

// ParticlePosition reads the position of particle i straight from an
// encoded buffer.
func ParticlePosition(b []byte, i int) Vec2 {
	r := b[i*ParticleStride:]
	return Vec2{getF32(r[OffsetPos:]), getF32(r[OffsetPos+4:])}
}

// ParticleVelocity reads the velocity of particle i straight from an
// encoded buffer.
func ParticleVelocity(b []byte, i int) Vec2 {
	r := b[i*ParticleStride:]
	return Vec2{getF32(r[OffsetVel:]), getF32(r[OffsetVel+4:])}
}

// EncodeCells serializes cs into a new byte slice.
func EncodeCells(cs []Cell) []byte {
	b := make([]byte, len(cs)*CellStride)
	EncodeCellsInto(b, cs)
	return b
}

// EncodeCellsInto serializes cs into b, which must be large enough.
func EncodeCellsInto(b []byte, cs []Cell) {
	for i := range cs {
		r := b[i*CellStride:]
		putF32(r, cs[i].Vel.X)
		putF32(r[4:], cs[i].Vel.Y)
		putF32(r[8:], cs[i].Mass)
		putF32(r[12:], 0)
	}
}

// DecodeCells fills cs from b.
func DecodeCells(b []byte, cs []Cell) error {
	if err := checkLen("grid", len(b), len(cs), CellStride); err != nil {
		return err
	}
	for i := range cs {
		r := b[i*CellStride:]
		cs[i] = Cell{Vel: Vec2{getF32(r), getF32(r[4:])}, Mass: getF32(r[8:])}
	}
	return nil
}

// EncodeMatrices serializes ms into a new byte slice.
func EncodeMatrices(ms []Mat2) []byte {
	b := make([]byte, len(ms)*MatStride)
	EncodeMatricesInto(b, ms)
	return b
}

// EncodeMatricesInto serializes ms into b, which must be large enough.
func EncodeMatricesInto(b []byte, ms []Mat2) {
	for i := range ms {
		putMat2(b[i*MatStride:], ms[i])
	}
}

// DecodeMatrices fills ms from b.
func DecodeMatrices(b []byte, ms []Mat2) error {
	if err := checkLen("matrix", len(b), len(ms), MatStride); err != nil {
		return err
	}
	for i := range ms {
		ms[i] = getMat2(b[i*MatStride:])
	}
	return nil
}

// Bytes serializes the uniforms.
func (u Uniforms) Bytes() []byte {
	b := make([]byte, UniformSize)
	putF32(b, u.DT)
	le.PutUint32(b[4:], u.ParticleCount)
	putF32(b[8:], u.ElasticLambda)
	putF32(b[12:], u.ElasticMu)
	putF32(b[16:], u.Gravity)
	le.PutUint32(b[20:], u.GridResolution)
	return b
}

// DecodeUniforms parses a uniform block.
func DecodeUniforms(b []byte) (Uniforms, error) {
	if len(b) < UniformSize {
		return Uniforms{}, fmt.Errorf("mpm: uniform buffer holds %d bytes, need %d", len(b), UniformSize)
	}
	return Uniforms{
		DT:             getF32(b),
		ParticleCount:  le.Uint32(b[4:]),
		ElasticLambda:  getF32(b[8:]),
		ElasticMu:      getF32(b[12:]),
		Gravity:        getF32(b[16:]),
		GridResolution: le.Uint32(b[20:]),
	}, nil
}
