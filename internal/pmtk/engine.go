package pmtk

import (
	"fmt"
	"io"

	"mtk3339/internal/nmea"
)

// Status is the lifecycle state of an issued command.
type Status int

const (
	// StatusPending: transmitted, awaiting acknowledgement.
	StatusPending Status = iota
	// StatusUnconfirmed: transmitted fire-and-forget; the chipset resets
	// instead of acking, so this is as resolved as it gets.
	StatusUnconfirmed
	// StatusAcked: PMTK001 received; see Handle.Ack for the result code.
	StatusAcked
	// StatusFailed: retries exhausted without an acknowledgement.
	StatusFailed
	// StatusCancelled: withdrawn by the caller or replaced by a newer
	// command of the same kind.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusUnconfirmed:
		return "unconfirmed"
	case StatusAcked:
		return "acked"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// maxRetries is the number of retransmissions after the initial send.
const maxRetries = 3

// Handle tracks one issued command. It is updated by the engine; callers
// poll Status after driving update cycles.
type Handle struct {
	cmd    Command
	status Status
	result nmea.AckResult

	cycles   int // update cycles since the last transmission
	attempts int // transmissions so far
}

func (h *Handle) Command() Command { return h.cmd }
func (h *Handle) Status() Status   { return h.status }

// Done reports whether the command reached a terminal state.
func (h *Handle) Done() bool { return h.status != StatusPending }

// Ack returns the acknowledgement result. ok is false unless the command
// was acked.
func (h *Handle) Ack() (nmea.AckResult, bool) {
	return h.result, h.status == StatusAcked
}

// Attempts returns how many times the command has been transmitted.
func (h *Handle) Attempts() int { return h.attempts }

// Engine owns the pending-command set. It is single-threaded and
// caller-driven: time advances only through Tick, once per update cycle.
type Engine struct {
	ackCycles int
	pending   []*Handle
}

// NewEngine creates an engine that waits ackCycles update cycles for an
// acknowledgement before each retransmission.
func NewEngine(ackCycles int) *Engine {
	if ackCycles <= 0 {
		ackCycles = 10
	}
	return &Engine{ackCycles: ackCycles}
}

// Issue transmits the command and, when it expects an acknowledgement,
// registers it as pending. Issuing a command while one of the same kind is
// still pending replaces it: the older command is cancelled, not queued.
func (e *Engine) Issue(w io.Writer, c Command) (*Handle, error) {
	if _, err := w.Write(c.Encode()); err != nil {
		return nil, fmt.Errorf("pmtk: write %s: %w", c.Kind(), err)
	}
	h := &Handle{cmd: c, attempts: 1}
	if !c.ack {
		h.status = StatusUnconfirmed
		return h, nil
	}
	for i, p := range e.pending {
		if p.cmd.kind == c.kind {
			p.status = StatusCancelled
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			break
		}
	}
	e.pending = append(e.pending, h)
	return h, nil
}

// OnAck matches an incoming acknowledgement to a pending command and
// resolves it. It returns the resolved handle, or nil for an unsolicited
// ack.
func (e *Engine) OnAck(a nmea.Ack) *Handle {
	for i, p := range e.pending {
		if p.cmd.id == a.Cmd {
			p.status = StatusAcked
			p.result = a.Result
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return p
		}
	}
	return nil
}

// Cancel withdraws a pending command without side effects. It is a no-op
// for commands already in a terminal state.
func (e *Engine) Cancel(h *Handle) {
	if h == nil || h.status != StatusPending {
		return
	}
	for i, p := range e.pending {
		if p == h {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			break
		}
	}
	h.status = StatusCancelled
}

// Tick advances every pending command by one update cycle, retransmitting
// those that have waited ackCycles cycles and failing those that exhausted
// their retries. The first write error is returned; the affected command
// stays pending for the next cycle.
func (e *Engine) Tick(w io.Writer) error {
	var firstErr error
	kept := e.pending[:0]
	for _, p := range e.pending {
		p.cycles++
		if p.cycles < e.ackCycles {
			kept = append(kept, p)
			continue
		}
		if p.attempts > maxRetries {
			p.status = StatusFailed
			continue
		}
		if _, err := w.Write(p.cmd.Encode()); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("pmtk: retransmit %s: %w", p.cmd.Kind(), err)
			}
			kept = append(kept, p)
			continue
		}
		p.attempts++
		p.cycles = 0
		kept = append(kept, p)
	}
	e.pending = kept
	return firstErr
}

// PendingCount reports how many commands are awaiting acknowledgement.
func (e *Engine) PendingCount() int { return len(e.pending) }
