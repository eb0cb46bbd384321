// Package session models one connected client: its bounded input and
// outbound-frame queues, and the pluggable delivery slot the transport
// layer writes frames through.
package session

import (
	"sync"
	"time"
)

// InputQueueCapacity bounds how many buffered input events a session can
// hold before the transport must start dropping them.
const InputQueueCapacity = 100

// OutboundQueueCapacity bounds how many rendered frames can be queued for
// delivery before the tick loop drops a frame rather than block.
const OutboundQueueCapacity = 30

// InputEvent is one buffered key transition awaiting the tick loop.
type InputEvent struct {
	Code   byte
	IsDown bool
}

// Writer sends one already-encoded frame, returning an error if the
// underlying channel is closed or the write otherwise fails.
type Writer func(frame []byte) error

// Session owns one client's channels and the current delivery writer. It
// is safe for concurrent use: the transport goroutines write to Input and
// read from Outbound; the tick loop does the reverse.
type Session struct {
	ID        string
	CreatedAt time.Time

	Input    chan InputEvent
	Outbound chan []byte

	mu             sync.Mutex
	unreliableSend Writer // WebRTC data channel, when open
	reliableSend   Writer // WebSocket fallback, always present once connected

	closeOnce         sync.Once
	closed            chan struct{}
	outboundCloseOnce sync.Once
}

// New creates a Session with its queues allocated and ready.
func New(id string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		Input:     make(chan InputEvent, InputQueueCapacity),
		Outbound:  make(chan []byte, OutboundQueueCapacity),
		closed:    make(chan struct{}),
	}
}

// SetUnreliableWriter installs or clears (nil) the unreliable data-channel
// writer. Locking is held only across the pointer swap, never across I/O.
func (s *Session) SetUnreliableWriter(w Writer) {
	s.mu.Lock()
	s.unreliableSend = w
	s.mu.Unlock()
}

// SetReliableWriter installs the WebSocket fallback writer.
func (s *Session) SetReliableWriter(w Writer) {
	s.mu.Lock()
	s.reliableSend = w
	s.mu.Unlock()
}

// Send delivers frame over the unreliable channel if one is open,
// otherwise falls back to the reliable channel. Returns an error if
// neither writer is installed or the chosen write failed.
func (s *Session) Send(frame []byte) error {
	s.mu.Lock()
	unreliable := s.unreliableSend
	reliable := s.reliableSend
	s.mu.Unlock()

	if unreliable != nil {
		if err := unreliable(frame); err == nil {
			return nil
		}
	}
	if reliable != nil {
		return reliable(frame)
	}
	return errNoWriter
}

// TryQueueInput enqueues ev without blocking, returning false if the input
// queue is full; ev is then dropped and the already-buffered inputs are kept.
func (s *Session) TryQueueInput(ev InputEvent) bool {
	select {
	case s.Input <- ev:
		return true
	default:
		return false
	}
}

// TryQueueFrame enqueues frame without blocking, returning false if the
// outbound queue is full — the tick loop drops the frame rather than
// stall the whole server on one slow client.
func (s *Session) TryQueueFrame(frame []byte) bool {
	select {
	case s.Outbound <- frame:
		return true
	default:
		return false
	}
}

// Close marks the session closed and closes its Input channel, signalling
// the tick loop to run OnDisconnect and drop the session. Called by the
// transport side (the Input producer). It never touches Outbound: the tick
// loop is Outbound's sole writer, so only the tick loop may close it (see
// CloseOutbound) — closing it here would race a concurrent TryQueueFrame.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		close(s.Input)
	})
}

// Done reports whether Close has been called.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// CloseOutbound closes the outbound frame queue, unblocking the delivery
// Coordinator's drain loop. Only the tick loop may call this, and only
// after it has stopped writing to Outbound for this session (i.e. once the
// session has been removed from the registry), so it never races a send.
func (s *Session) CloseOutbound() {
	s.outboundCloseOnce.Do(func() {
		close(s.Outbound)
	})
}

type writerError string

func (e writerError) Error() string { return string(e) }

const errNoWriter = writerError("session: no delivery writer installed")
