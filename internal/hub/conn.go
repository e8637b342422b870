package hub

// FrameKind classifies an inbound frame.
type FrameKind int

const (
	// FrameText is a UTF-8 text frame.
	FrameText FrameKind = iota
	// FrameBinary is a binary frame.
	FrameBinary
	// FrameOther is any other frame the transport chose to surface.
	FrameOther
)

// Frame is one inbound message read from a connection.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// Conn is a message-framed duplex channel owned by the hub for the duration
// of Serve. ReadFrame is only called from the receive loop and WriteText only
// from the drain goroutine, so each side has a single caller. Close must be
// idempotent and safe to call concurrently with ReadFrame and WriteText; it
// unblocks both.
//
// ReadFrame returns io.EOF when the peer closed the connection normally.
type Conn interface {
	ReadFrame() (Frame, error)
	WriteText(payload []byte) error
	Close() error
}
