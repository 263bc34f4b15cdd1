package telemetry

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/lava/mpm"
)

func TestCollectEmpty(t *testing.T) {
	s := Collect(3, 0.5, nil, nil)
	assert.Equal(t, 3, s.Frame)
	assert.Equal(t, 0, s.Particles)
	assert.Zero(t, s.TotalMass)
}

func TestCollectMoments(t *testing.T) {
	ps := []mpm.Particle{
		{Pos: mpm.Vec2{X: 10, Y: 10}, Vel: mpm.Vec2{X: 1, Y: 0}, Mass: 1},
		{Pos: mpm.Vec2{X: 14, Y: 10}, Vel: mpm.Vec2{X: 0, Y: -2}, Mass: 3},
	}
	fs := []mpm.Mat2{mpm.Identity2(), {2, 0, 0, 1}}

	s := Collect(1, 0.1, ps, fs)

	assert.Equal(t, 2, s.Particles)
	assert.InDelta(t, 4.0, s.TotalMass, 1e-9)
	assert.InDelta(t, 0.5*1*1+0.5*3*4, s.KineticEnergy, 1e-9)
	assert.InDelta(t, 1.0, s.MomentumX, 1e-9)
	assert.InDelta(t, -6.0, s.MomentumY, 1e-9)
	assert.InDelta(t, 13.0, s.CenterX, 1e-9)
	assert.InDelta(t, 10.0, s.CenterY, 1e-9)
	assert.InDelta(t, 1.5, s.MeanSpeed, 1e-9)
	assert.InDelta(t, 2.0, s.MaxSpeed, 1e-9)
	assert.InDelta(t, 1.5, s.MeanDetF, 1e-9)
	assert.InDelta(t, math.Sqrt(0.5), s.StdDetF, 1e-9)
	assert.InDelta(t, 1.0, s.MinDetF, 1e-9)
	assert.InDelta(t, 2.0, s.MaxDetF, 1e-9)
	assert.Zero(t, s.NonFinite)
}

func TestCollectCountsNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	ps := []mpm.Particle{
		{Pos: mpm.Vec2{X: 1, Y: 1}, Mass: 1},
		{Pos: mpm.Vec2{X: nan, Y: 1}, Mass: 1},
	}
	fs := []mpm.Mat2{mpm.Identity2(), {nan, 0, 0, 1}}

	s := Collect(0, 0, ps, fs)

	assert.Equal(t, 2, s.NonFinite)
	assert.InDelta(t, 1.0, s.TotalMass, 1e-9)
	assert.InDelta(t, 1.0, s.MeanDetF, 1e-9)
	assert.Zero(t, s.StdDetF)
}

func TestWriterHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Write(Sample{Frame: 1, TotalMass: 2}))
	require.NoError(t, w.Write(Sample{Frame: 2, TotalMass: 2}))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "frame,elapsed,particles,total_mass"))
	assert.True(t, strings.HasPrefix(lines[1], "1,"))
	assert.True(t, strings.HasPrefix(lines[2], "2,"))
	assert.Equal(t, 2, w.Rows())
}

func TestCreateWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.csv")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(Sample{Frame: 7}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "non_finite")
	assert.Contains(t, string(data), "\n7,")
}

func TestCreateMissingDir(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing", "t.csv"))
	assert.Error(t, err)
}
