// Package signaling terminates the WebSocket upgrade, runs the WELCOME
// handshake, and wires a pion/webrtc PeerConnection per session, handing
// sessions off to the engine's intake queue.
package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/evanreyes/drawcast/internal/logger"
	"github.com/evanreyes/drawcast/internal/session"
)

const writeTimeout = 10 * time.Second

// Handler upgrades incoming connections to WebSocket, performs signaling,
// and registers new sessions with the engine.
type Handler struct {
	Registry         *session.Registry
	ServerInstanceID string
	ICEServers       []webrtc.ICEServer

	// OnSessionReady is invoked once a session is fully wired (queued on the
	// registry's pending list, reliable writer installed) so the caller can
	// start a delivery.Coordinator for it.
	OnSessionReady func(*session.Session)
}

// NewHandler builds a Handler with a freshly minted server instance id.
func NewHandler(reg *session.Registry) *Handler {
	return &Handler{
		Registry:         reg,
		ServerInstanceID: uuid.New().String(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logger.Warn("websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(64 * 1024)
	sc := &signalConn{conn: conn}

	ctx := r.Context()
	sessionID := requestedSessionID(r)

	sess := session.New(sessionID)
	sess.SetReliableWriter(func(frame []byte) error {
		writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		return sc.writeBinary(writeCtx, frame)
	})

	welcome := Welcome{Type: TypeWelcome, SessionID: sessionID, ServerInstanceID: h.ServerInstanceID}
	data, _ := json.Marshal(welcome)
	if err := sc.writeText(ctx, data); err != nil {
		logger.Warn("welcome send failed", "session", sessionID, "error", err)
		conn.CloseNow()
		return
	}

	h.Registry.Enqueue(sess)
	if h.OnSessionReady != nil {
		h.OnSessionReady(sess)
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: h.ICEServers})
	if err != nil {
		logger.Warn("peer connection failed", "session", sessionID, "error", err)
	} else {
		h.wirePeerConnection(pc, sess, sc)
		defer pc.Close()
	}

	h.readLoop(ctx, sc, sess, pc)

	sess.Close()
	conn.CloseNow()
}

// signalConn serializes writes to one client's WebSocket connection.
// Outgoing frames (reliable fallback), the WELCOME handshake, ANSWER
// replies, and server-generated ICE candidates all share this one
// connection from different goroutines (the tick loop's delivery
// coordinator and pion's internal ICE-agent goroutine), so every write
// must go through the same mutex rather than racing coder/websocket's
// single in-flight writer.
type signalConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *signalConn) writeBinary(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageBinary, data)
}

func (c *signalConn) writeText(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// wirePeerConnection registers the data-channel, connection-state, and
// local-ICE-candidate callbacks that bridge the peer connection into sess
// and sc. Grounded on the original's on_ice_candidate handler
// (main.rs), which forwards each locally gathered candidate to the
// client over the same signaling channel used for the SDP exchange.
func (h *Handler) wirePeerConnection(pc *webrtc.PeerConnection, sess *session.Session, sc *signalConn) {
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnOpen(func() {
			sess.SetUnreliableWriter(func(frame []byte) error {
				return dc.Send(frame)
			})
		})
		dc.OnClose(func() {
			sess.SetUnreliableWriter(nil)
		})
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			dispatchInput(sess, msg.Data)
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
			sess.SetUnreliableWriter(nil)
		}
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			// End-of-candidates: nothing to forward.
			return
		}
		init, err := c.ToJSON()
		if err != nil {
			logger.Warn("ice candidate marshal failed", "session", sess.ID, "error", err)
			return
		}
		out := CandidateMessage{
			Type:          TypeCandidate,
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		}
		payload, err := json.Marshal(out)
		if err != nil {
			return
		}
		writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := sc.writeText(writeCtx, payload); err != nil {
			logger.Warn("ice candidate send failed", "session", sess.ID, "error", err)
		}
	})
}

// readLoop dispatches incoming WebSocket messages: binary input events and
// JSON-tagged signaling messages (OFFER/ANSWER/CANDIDATE). It returns once
// the socket closes or errors.
func (h *Handler) readLoop(ctx context.Context, sc *signalConn, sess *session.Session, pc *webrtc.PeerConnection) {
	for {
		msgType, data, err := sc.conn.Read(ctx)
		if err != nil {
			return
		}

		if msgType == websocket.MessageBinary {
			dispatchInput(sess, data)
			continue
		}

		h.handleSignalingText(ctx, sc, pc, data)
	}
}

func (h *Handler) handleSignalingText(ctx context.Context, sc *signalConn, pc *webrtc.PeerConnection, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}
	if pc == nil {
		return
	}

	switch env.Type {
	case TypeOffer:
		var offer SDPMessage
		if err := json.Unmarshal(data, &offer); err != nil {
			return
		}
		h.handleOffer(ctx, sc, pc, offer.SDP)

	case TypeAnswer:
		var answer SDPMessage
		if err := json.Unmarshal(data, &answer); err != nil {
			return
		}
		_ = pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer.SDP})

	case TypeCandidate:
		var cand CandidateMessage
		if err := json.Unmarshal(data, &cand); err != nil {
			return
		}
		init := webrtc.ICECandidateInit{Candidate: cand.Candidate}
		if cand.SDPMid != nil {
			init.SDPMid = cand.SDPMid
		}
		if cand.SDPMLineIndex != nil {
			init.SDPMLineIndex = cand.SDPMLineIndex
		}
		_ = pc.AddICECandidate(init)

	default:
		// Unknown types are ignored.
	}
}

func (h *Handler) handleOffer(ctx context.Context, sc *signalConn, pc *webrtc.PeerConnection, sdp string) {
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}); err != nil {
		logger.Warn("set remote description failed", "error", err)
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		logger.Warn("create answer failed", "error", err)
		return
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		logger.Warn("set local description failed", "error", err)
		return
	}
	<-gatherComplete

	local := pc.LocalDescription()
	if local == nil {
		return
	}
	out := SDPMessage{Type: TypeAnswer, SDP: local.SDP}
	payload, _ := json.Marshal(out)
	_ = sc.writeText(ctx, payload)
}

// dispatchInput parses a 2-byte input event (keycode, is_down) and queues
// it; anything else is ignored, per §6.2.
func dispatchInput(sess *session.Session, data []byte) {
	if len(data) != 2 {
		return
	}
	sess.TryQueueInput(session.InputEvent{Code: data[0], IsDown: data[1] != 0})
}

// requestedSessionID reads the optional ?session= query parameter, minting
// a fresh UUID if absent.
func requestedSessionID(r *http.Request) string {
	if id := r.URL.Query().Get("session"); id != "" {
		return id
	}
	return uuid.New().String()
}

// HealthHandler reports liveness, grounded on the teacher's handleHealth.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true}`))
}
