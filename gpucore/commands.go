package gpucore

import "fmt"

// DrawTarget consumes a vertex stream. stride is the byte distance between
// vertices.
type DrawTarget interface {
	DrawVertices(vertices []byte, count, stride int) error
}

// Recorder records commands for one queue.
type Recorder interface {
	// Queue returns the queue the recorded commands will run on.
	Queue() QueueID
	// CopyBuffer copies size bytes from the start of src to the start of dst.
	CopyBuffer(src, dst BufferID, size uint64)
	// Barrier records a buffer memory barrier, which may also release or
	// acquire queue ownership.
	Barrier(b BufferBarrier)
	// Dispatch records a kernel dispatch of x*y*z workgroups.
	Dispatch(kernel KernelID, bindings []Binding, x, y, z uint32)
	// Draw records a point draw of count vertices from buffer into target.
	Draw(buffer BufferID, count int, target DrawTarget)
}

// CommandKind identifies a recorded command.
type CommandKind uint8

// Command kinds.
const (
	CommandCopy CommandKind = iota
	CommandBarrier
	CommandDispatch
	CommandDraw
)

func (k CommandKind) String() string {
	switch k {
	case CommandCopy:
		return "copy"
	case CommandBarrier:
		return "barrier"
	case CommandDispatch:
		return "dispatch"
	case CommandDraw:
		return "draw"
	default:
		return fmt.Sprintf("CommandKind(%d)", k)
	}
}

// Command is one recorded command. Only the field matching Kind is set.
type Command struct {
	Kind     CommandKind
	Copy     CopyCommand
	Barrier  BufferBarrier
	Dispatch DispatchCommand
	Draw     DrawCommand
}

// CopyCommand copies Size bytes between buffers.
type CopyCommand struct {
	Src, Dst BufferID
	Size     uint64
}

// DispatchCommand runs a kernel.
type DispatchCommand struct {
	Kernel   KernelID
	Bindings []Binding
	Groups   [3]uint32
}

// DrawCommand draws Count vertices from Buffer into Target.
type DrawCommand struct {
	Buffer BufferID
	Count  int
	Target DrawTarget
}

// CommandList is a recorded, replayable command sequence for one queue.
// It implements [Recorder]. A list may be submitted any number of times.
type CommandList struct {
	Label    string
	queue    QueueID
	Commands []Command
}

// NewCommandList returns an empty list for queue.
func NewCommandList(label string, queue QueueID) *CommandList {
	return &CommandList{Label: label, queue: queue}
}

// Queue implements Recorder.
func (l *CommandList) Queue() QueueID { return l.queue }

// CopyBuffer implements Recorder.
func (l *CommandList) CopyBuffer(src, dst BufferID, size uint64) {
	l.Commands = append(l.Commands, Command{Kind: CommandCopy, Copy: CopyCommand{Src: src, Dst: dst, Size: size}})
}

// Barrier implements Recorder.
func (l *CommandList) Barrier(b BufferBarrier) {
	l.Commands = append(l.Commands, Command{Kind: CommandBarrier, Barrier: b})
}

// Dispatch implements Recorder.
func (l *CommandList) Dispatch(kernel KernelID, bindings []Binding, x, y, z uint32) {
	l.Commands = append(l.Commands, Command{Kind: CommandDispatch, Dispatch: DispatchCommand{
		Kernel:   kernel,
		Bindings: append([]Binding(nil), bindings...),
		Groups:   [3]uint32{x, y, z},
	}})
}

// Draw implements Recorder.
func (l *CommandList) Draw(buffer BufferID, count int, target DrawTarget) {
	l.Commands = append(l.Commands, Command{Kind: CommandDraw, Draw: DrawCommand{Buffer: buffer, Count: count, Target: target}})
}

// Len returns the number of recorded commands.
func (l *CommandList) Len() int { return len(l.Commands) }
