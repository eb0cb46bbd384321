// Package delivery runs the per-session compression-and-send pipeline that
// sits between the tick loop's rendered frames and the transport layer.
package delivery

import (
	"github.com/klauspost/compress/zstd"

	"github.com/evanreyes/drawcast/internal/logger"
	"github.com/evanreyes/drawcast/internal/session"
)

// Coordinator drains one session's outbound frame queue, compresses each
// frame, and hands it to the session's Send (which prefers the unreliable
// data channel and falls back to the reliable WebSocket writer). It never
// blocks the tick loop: it runs on its own goroutine per session and
// terminates when the session's outbound queue is drained after
// CloseOutbound.
type Coordinator struct {
	sess     *session.Session
	encoder  *zstd.Encoder
	done     chan struct{}
}

// NewCoordinator builds a Coordinator for sess. The encoder requests the
// fastest compression level, mirroring the original engine's zstd level 0.
func NewCoordinator(sess *session.Session) (*Coordinator, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	return &Coordinator{sess: sess, encoder: enc, done: make(chan struct{})}, nil
}

// Run drains sess.Outbound until it is closed (by the tick loop removing
// the session), compressing and delivering each frame in turn.
func (c *Coordinator) Run() {
	defer close(c.done)
	defer c.encoder.Close()

	for frame := range c.sess.Outbound {
		compressed := c.encoder.EncodeAll(frame, nil)
		if err := c.sess.Send(compressed); err != nil {
			logger.Warn("frame delivery failed", "session", c.sess.ID, "error", err)
		}
	}
}

// Done reports when Run has returned.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}
