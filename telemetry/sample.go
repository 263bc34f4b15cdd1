// Package telemetry computes per-frame statistics of the particle state and
// writes them as CSV.
package telemetry

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gogpu/lava/mpm"
)

// Sample is one row of telemetry.
type Sample struct {
	Frame     int     `csv:"frame"`
	Elapsed   float64 `csv:"elapsed"`
	Particles int     `csv:"particles"`

	TotalMass     float64 `csv:"total_mass"`
	KineticEnergy float64 `csv:"kinetic_energy"`
	MomentumX     float64 `csv:"momentum_x"`
	MomentumY     float64 `csv:"momentum_y"`
	CenterX       float64 `csv:"center_x"`
	CenterY       float64 `csv:"center_y"`
	MeanSpeed     float64 `csv:"mean_speed"`
	MaxSpeed      float64 `csv:"max_speed"`

	// Spread of det(F), the local volume ratio.
	MeanDetF float64 `csv:"mean_det_f"`
	StdDetF  float64 `csv:"std_det_f"`
	MinDetF  float64 `csv:"min_det_f"`
	MaxDetF  float64 `csv:"max_det_f"`

	// NonFinite counts particles with a NaN or infinite position or det(F).
	NonFinite int `csv:"non_finite"`
}

// Collect computes a sample from particle state read back from the device.
// fs may be nil, leaving the det(F) columns zero.
func Collect(frame int, elapsed float64, ps []mpm.Particle, fs []mpm.Mat2) Sample {
	s := Sample{Frame: frame, Elapsed: elapsed, Particles: len(ps)}
	if len(ps) == 0 {
		return s
	}

	masses := make([]float64, 0, len(ps))
	xs := make([]float64, 0, len(ps))
	ys := make([]float64, 0, len(ps))
	speeds := make([]float64, 0, len(ps))
	for i := range ps {
		p := &ps[i]
		if !finite(p.Pos.X) || !finite(p.Pos.Y) || !finite(p.Vel.X) || !finite(p.Vel.Y) {
			s.NonFinite++
			continue
		}
		m := float64(p.Mass)
		vx, vy := float64(p.Vel.X), float64(p.Vel.Y)
		v2 := vx*vx + vy*vy

		masses = append(masses, m)
		xs = append(xs, float64(p.Pos.X))
		ys = append(ys, float64(p.Pos.Y))
		speeds = append(speeds, math.Sqrt(v2))

		s.KineticEnergy += 0.5 * m * v2
		s.MomentumX += m * vx
		s.MomentumY += m * vy
	}

	if len(masses) > 0 {
		s.TotalMass = floats.Sum(masses)
		if s.TotalMass > 0 {
			s.CenterX = stat.Mean(xs, masses)
			s.CenterY = stat.Mean(ys, masses)
		}
		s.MeanSpeed = stat.Mean(speeds, nil)
		s.MaxSpeed = floats.Max(speeds)
	}

	if len(fs) > 0 {
		dets := make([]float64, 0, len(fs))
		for _, f := range fs {
			d := float64(f.Det())
			if !finite(float32(d)) {
				s.NonFinite++
				continue
			}
			dets = append(dets, d)
		}
		if len(dets) > 0 {
			s.MeanDetF = stat.Mean(dets, nil)
			if len(dets) > 1 {
				s.StdDetF = stat.StdDev(dets, nil)
			}
			s.MinDetF = floats.Min(dets)
			s.MaxDetF = floats.Max(dets)
		}
	}
	return s
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// LogValue implements slog.LogValuer.
func (s Sample) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frame", s.Frame),
		slog.Float64("mass", s.TotalMass),
		slog.Float64("kinetic", s.KineticEnergy),
		slog.Float64("mean_det_f", s.MeanDetF),
		slog.Int("non_finite", s.NonFinite),
	)
}
