package signaling

// Envelope wraps every signaling message with a type field for routing,
// mirroring the relay's tagged-union JSON protocol.
type Envelope struct {
	Type string `json:"type"`
}

// Signaling message type tags, see §6.3.
const (
	TypeWelcome   = "WELCOME"
	TypeOffer     = "OFFER"
	TypeAnswer    = "ANSWER"
	TypeCandidate = "CANDIDATE"
)

// Welcome is sent server→client immediately after the WebSocket upgrade,
// before the session is pushed into the tick loop's intake queue.
type Welcome struct {
	Type            string `json:"type"`
	SessionID       string `json:"session_id"`
	ServerInstanceID string `json:"server_instance_id"`
}

// SDPMessage carries an OFFER or ANSWER in either direction.
type SDPMessage struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// CandidateMessage carries a trickle ICE candidate in either direction.
type CandidateMessage struct {
	Type          string  `json:"type"`
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdp_mid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdp_mline_index,omitempty"`
}
