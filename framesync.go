package lava

import (
	"fmt"

	"github.com/gogpu/lava/gpucore"
)

// FrameSync is the semaphore ping-pong between the graphics and compute
// queues plus the per-slot completion tracking of frames in flight.
//
// Each frame the graphics submission waits on computeDone and signals
// graphicsDone; the compute submission waits on graphicsDone and signals
// computeDone. Seed raises computeDone once with an empty graphics
// submission so the first frame has something to wait on.
type FrameSync struct {
	dev          gpucore.Device
	graphicsDone gpucore.SemaphoreID
	computeDone  gpucore.SemaphoreID

	// inFlight holds the last compute submission of each slot; zero means
	// the slot is free.
	inFlight []gpucore.SubmissionID
	slot     int
	seeded   bool
}

// NewFrameSync creates the semaphore pair for the given number of slots.
// Call Seed before the first frame.
func NewFrameSync(dev gpucore.Device, slots int) (*FrameSync, error) {
	if slots < 1 {
		return nil, fmt.Errorf("%w: %d frame slots", ErrInvalidConfig, slots)
	}
	s := &FrameSync{dev: dev, inFlight: make([]gpucore.SubmissionID, slots)}
	if err := s.create(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FrameSync) create() error {
	var err error
	if s.graphicsDone, err = s.dev.CreateSemaphore(); err != nil {
		return err
	}
	if s.computeDone, err = s.dev.CreateSemaphore(); err != nil {
		s.Destroy()
		return err
	}
	return nil
}

// Seed signals computeDone with an empty graphics submission.
func (s *FrameSync) Seed() error {
	if s.seeded {
		return nil
	}
	q := s.dev.Queues()
	seed := gpucore.NewCommandList("seed", q.Graphics)
	if _, err := s.dev.Submit(seed, nil, []gpucore.SemaphoreID{s.computeDone}); err != nil {
		return err
	}
	s.seeded = true
	return nil
}

// Slot returns the slot of the next frame.
func (s *FrameSync) Slot() int { return s.slot }

// Slots returns the number of frame slots.
func (s *FrameSync) Slots() int { return len(s.inFlight) }

// Acquire reports whether the current slot is free. It never blocks: a slot
// whose previous submission has not completed makes the caller skip the
// frame.
func (s *FrameSync) Acquire() bool {
	id := s.inFlight[s.slot]
	if id == 0 || s.dev.Completed(id) {
		s.inFlight[s.slot] = 0
		return true
	}
	return false
}

// SubmitGraphics submits the render list of the current slot.
func (s *FrameSync) SubmitGraphics(list *gpucore.CommandList) error {
	if !s.seeded {
		return fmt.Errorf("lava: %w: graphics submitted before seed", gpucore.ErrSemaphoreState)
	}
	_, err := s.dev.Submit(list,
		[]gpucore.SemaphoreID{s.computeDone},
		[]gpucore.SemaphoreID{s.graphicsDone})
	return err
}

// SubmitCompute submits the simulation list of the current slot and
// records it as the slot's in-flight work.
func (s *FrameSync) SubmitCompute(list *gpucore.CommandList) error {
	id, err := s.dev.Submit(list,
		[]gpucore.SemaphoreID{s.graphicsDone},
		[]gpucore.SemaphoreID{s.computeDone})
	if err != nil {
		return err
	}
	s.inFlight[s.slot] = id
	return nil
}

// Advance moves to the next slot.
func (s *FrameSync) Advance() {
	s.slot = (s.slot + 1) % len(s.inFlight)
}

// Reset recreates the semaphores and clears the slots. The device must be
// idle. Seed must be called again.
func (s *FrameSync) Reset(slots int) error {
	if slots < 1 {
		return fmt.Errorf("%w: %d frame slots", ErrInvalidConfig, slots)
	}
	s.Destroy()
	s.inFlight = make([]gpucore.SubmissionID, slots)
	return s.create()
}

// Destroy releases the semaphores.
func (s *FrameSync) Destroy() {
	if s.graphicsDone != gpucore.InvalidID {
		s.dev.DestroySemaphore(s.graphicsDone)
	}
	if s.computeDone != gpucore.InvalidID {
		s.dev.DestroySemaphore(s.computeDone)
	}
	s.graphicsDone, s.computeDone = gpucore.InvalidID, gpucore.InvalidID
	s.slot = 0
	s.seeded = false
}
