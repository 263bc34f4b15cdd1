package gpucore

// BufferBarrier orders access to a buffer between commands and, when
// SrcQueue and DstQueue name different queues, transfers ownership between
// them. A transfer is recorded twice: as a release on SrcQueue and as an
// acquire on DstQueue.
type BufferBarrier struct {
	Buffer    BufferID
	Size      uint64
	SrcAccess Access
	DstAccess Access
	SrcQueue  QueueID
	DstQueue  QueueID
	SrcStage  Stage
	DstStage  Stage
}

// IsTransfer reports whether b moves queue ownership.
func (b BufferBarrier) IsTransfer() bool {
	return b.SrcQueue != QueueIgnored || b.DstQueue != QueueIgnored
}

// MemoryBarrier returns a barrier that makes writes with access src visible
// to accesses dst on the same queue.
func MemoryBarrier(buf BufferID, size uint64, src, dst Access, srcStage, dstStage Stage) BufferBarrier {
	return BufferBarrier{
		Buffer:    buf,
		Size:      size,
		SrcAccess: src,
		DstAccess: dst,
		SrcQueue:  QueueIgnored,
		DstQueue:  QueueIgnored,
		SrcStage:  srcStage,
		DstStage:  dstStage,
	}
}

// OwnershipTransfer describes moving a buffer from one queue to another.
// All release and acquire barriers are built through it.
type OwnershipTransfer struct {
	Buffer    BufferID
	Size      uint64
	From      QueueID
	To        QueueID
	SrcAccess Access
	DstAccess Access
	SrcStage  Stage
	DstStage  Stage
}

// Needed reports whether the queues differ. Transfers between identical
// queues are invalid and are never recorded.
func (t OwnershipTransfer) Needed() bool { return t.From != t.To }

func (t OwnershipTransfer) barrier(src, dst Access) BufferBarrier {
	return BufferBarrier{
		Buffer:    t.Buffer,
		Size:      t.Size,
		SrcAccess: src,
		DstAccess: dst,
		SrcQueue:  t.From,
		DstQueue:  t.To,
		SrcStage:  t.SrcStage,
		DstStage:  t.DstStage,
	}
}

// Release records the release half on rec, which must record for t.From.
// It reports whether a barrier was recorded.
func (t OwnershipTransfer) Release(rec Recorder) bool {
	if !t.Needed() {
		return false
	}
	rec.Barrier(t.barrier(t.SrcAccess, AccessNone))
	return true
}

// Acquire records the acquire half on rec, which must record for t.To.
// It reports whether a barrier was recorded.
func (t OwnershipTransfer) Acquire(rec Recorder) bool {
	if !t.Needed() {
		return false
	}
	rec.Barrier(t.barrier(AccessNone, t.DstAccess))
	return true
}

// Reverse returns the transfer in the opposite direction.
func (t OwnershipTransfer) Reverse() OwnershipTransfer {
	return OwnershipTransfer{
		Buffer:    t.Buffer,
		Size:      t.Size,
		From:      t.To,
		To:        t.From,
		SrcAccess: t.DstAccess,
		DstAccess: t.SrcAccess,
		SrcStage:  t.DstStage,
		DstStage:  t.SrcStage,
	}
}
