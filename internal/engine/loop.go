// Package engine drives the fixed-rate authoritative tick loop: the single
// goroutine that owns the Logic Host, the session registry, and the debug
// control channel.
package engine

import (
	"context"
	"runtime"
	"time"

	"github.com/evanreyes/drawcast/internal/host"
	"github.com/evanreyes/drawcast/internal/logger"
	"github.com/evanreyes/drawcast/internal/session"
)

// FrameRate is the fixed tick rate the loop targets.
const FrameRate = 30

// FramePeriod is the target duration of one tick.
const FramePeriod = time.Second / FrameRate

// EvalRequest asks the host to run debug code, replying on Reply.
type EvalRequest struct {
	Code  string
	Reply chan<- EvalResult
}

// EvalResult is the outcome of an EvalRequest.
type EvalResult struct {
	Result string
	Err    error
}

// SnapshotRequest asks for a fresh draw() of a session's current frame.
type SnapshotRequest struct {
	SessionID string
	Reply     chan<- SnapshotResult
}

// SnapshotResult is the outcome of a SnapshotRequest.
type SnapshotResult struct {
	Payload []byte
	Err     error
}

// Loop owns the Logic Host, the session registry and drives ticks at
// FrameRate. A Loop must not be copied after first use.
type Loop struct {
	Registry *session.Registry

	host   host.Host
	loader *host.Loader

	lastTick time.Time

	evalRequests     chan EvalRequest
	snapshotRequests chan SnapshotRequest
}

// NewLoop creates a Loop around an already-loaded host. loader may be nil
// if hot-reload is disabled.
func NewLoop(h host.Host, loader *host.Loader, reg *session.Registry) *Loop {
	return &Loop{
		Registry:         reg,
		host:             h,
		loader:           loader,
		evalRequests:     make(chan EvalRequest, 8),
		snapshotRequests: make(chan SnapshotRequest, 8),
	}
}

// SubmitEval enqueues an eval request for the next tick's debug drain.
// Returns false if the request queue is full.
func (l *Loop) SubmitEval(req EvalRequest) bool {
	select {
	case l.evalRequests <- req:
		return true
	default:
		return false
	}
}

// SubmitSnapshot enqueues a render-snapshot request for the next tick.
func (l *Loop) SubmitSnapshot(req SnapshotRequest) bool {
	select {
	case l.snapshotRequests <- req:
		return true
	default:
		return false
	}
}

// Run pins the calling goroutine to its OS thread — the spec's invariant
// that exactly one OS thread ever executes the tick loop — and ticks at
// FrameRate until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.lastTick = time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		l.Tick()
		elapsed := time.Since(start)
		if remaining := FramePeriod - elapsed; remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// Tick runs exactly one frame: hot-reload check, dt compute, begin_frame,
// session intake, debug drain, input drain, update, render+dispatch. It is
// exported as a single step so tests can drive the loop deterministically
// without real-time sleeps.
func (l *Loop) Tick() {
	l.checkHotReload()

	now := time.Now()
	if l.lastTick.IsZero() {
		l.lastTick = now
	}
	dt := now.Sub(l.lastTick)
	l.lastTick = now

	l.host.BeginFrame()
	l.acceptSessions()
	l.drainDebugRequests()
	l.drainInputs()

	if err := l.host.Update(dt); err != nil {
		logger.Warn("update error", "error", err)
	}

	l.renderAndDispatch()
}

func (l *Loop) checkHotReload() {
	if l.loader == nil {
		return
	}
	select {
	case next := <-l.loader.Reloaded:
		prev := l.host
		l.host = next
		for _, s := range l.Registry.All() {
			preamble, err := l.host.OnConnect(s.ID)
			if err != nil {
				logger.Warn("on_connect failed after hot reload", "session", s.ID, "error", err)
				continue
			}
			if preamble != nil {
				s.TryQueueFrame(preamble)
			}
		}
		prev.Close()
		logger.Info("host hot-reloaded")
	default:
	}
}

func (l *Loop) acceptSessions() {
	for _, s := range l.Registry.DrainPending() {
		preamble, err := l.host.OnConnect(s.ID)
		if err != nil {
			logger.Warn("on_connect failed, aborting session", "session", s.ID, "error", err)
			l.Registry.Remove(s.ID)
			s.CloseOutbound()
			continue
		}
		if preamble != nil {
			s.TryQueueFrame(preamble)
		}
	}
}

func (l *Loop) drainDebugRequests() {
	select {
	case req := <-l.evalRequests:
		result, err := l.host.Eval(req.Code)
		req.Reply <- EvalResult{Result: result, Err: err}
	default:
	}

	select {
	case req := <-l.snapshotRequests:
		payload, err := l.host.Draw(req.SessionID)
		req.Reply <- SnapshotResult{Payload: payload, Err: err}
	default:
	}
}

func (l *Loop) drainInputs() {
	for _, s := range l.Registry.All() {
		l.drainSessionInput(s)
	}
}

func (l *Loop) drainSessionInput(s *session.Session) {
	for {
		select {
		case ev, ok := <-s.Input:
			if !ok {
				l.disconnect(s)
				return
			}
			if err := l.host.HandleInput(s.ID, ev.Code, ev.IsDown); err != nil {
				logger.Warn("handle_input error", "session", s.ID, "error", err)
			}
		default:
			return
		}
	}
}

func (l *Loop) disconnect(s *session.Session) {
	l.Registry.Remove(s.ID)
	s.CloseOutbound()
	if err := l.host.OnDisconnect(s.ID); err != nil {
		logger.Warn("on_disconnect error", "session", s.ID, "error", err)
	}
}

func (l *Loop) renderAndDispatch() {
	for _, s := range l.Registry.All() {
		select {
		case <-s.Done():
			l.disconnect(s)
			continue
		default:
		}

		payload, err := l.host.Draw(s.ID)
		if err != nil {
			logger.Warn("draw error", "session", s.ID, "error", err)
			continue
		}
		if !s.TryQueueFrame(payload) {
			// Outbound queue full: drop this tick's frame for this
			// session, never block the loop for one slow client.
			continue
		}
	}
}
