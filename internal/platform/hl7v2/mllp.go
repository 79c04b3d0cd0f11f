package hl7v2

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// MLLPStartBlock is the MLLP start-of-message byte (VT).
	MLLPStartBlock = 0x0B

	// MLLPEndBlock is the MLLP end-of-message byte (FS).
	MLLPEndBlock = 0x1C

	// MLLPCarriageReturn is the trailing CR after the end block.
	MLLPCarriageReturn = 0x0D

	mllpMaxMessageSize = 1 << 20
	mllpReadTimeout    = 30 * time.Second
	mllpWriteTimeout   = 10 * time.Second
)

// AckCode is the MSA-1 acknowledgment code.
type AckCode string

const (
	AckAccept AckCode = "AA"
	AckError  AckCode = "AE"
	AckReject AckCode = "AR"
)

// MessageHandler is called for each tokenized message received over MLLP.
// It returns the acknowledgment code and an optional MSA-3 text.
type MessageHandler func(msg *Message) (AckCode, string)

// MLLPServer listens for HL7v2 messages over MLLP/TCP and answers each one
// with an ACK built from the handler's verdict.
type MLLPServer struct {
	addr     string
	handler  MessageHandler
	logger   zerolog.Logger
	listener net.Listener
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewMLLPServer creates a server that will listen on addr.
func NewMLLPServer(addr string, handler MessageHandler, logger zerolog.Logger) *MLLPServer {
	return &MLLPServer{
		addr:    addr,
		handler: handler,
		logger:  logger.With().Str("component", "mllp").Logger(),
		conns:   make(map[net.Conn]struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins listening. The accept loop runs in a background goroutine.
func (s *MLLPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("mllp: failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("mllp listener started")
	return nil
}

// Stop closes the listener and every open connection, then waits for all
// goroutines to exit.
func (s *MLLPServer) Stop() error {
	close(s.done)

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// Addr returns the bound address, which differs from the configured one when
// port 0 was requested.
func (s *MLLPServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *MLLPServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Error().Err(err).Msg("accept failed")
			return
		}

		s.trackConn(conn, true)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.trackConn(conn, false)
			defer conn.Close()
			s.handleConnection(conn)
		}()
	}
}

func (s *MLLPServer) trackConn(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// handleConnection reads framed messages from conn until the peer goes away,
// the connection idles out, or the server stops.
func (s *MLLPServer) handleConnection(conn net.Conn) {
	buf := make([]byte, 0, 4096)
	readBuf := make([]byte, 4096)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(mllpReadTimeout))

		n, err := conn.Read(readBuf)
		if n > 0 {
			buf = append(buf, readBuf[:n]...)
			if len(buf) > mllpMaxMessageSize {
				s.logger.Warn().Str("remote", conn.RemoteAddr().String()).Msg("message exceeds max size, closing connection")
				return
			}

			for {
				msgBytes, rest, found := UnframeMessage(buf)
				if !found {
					break
				}
				buf = rest
				s.processMessage(conn, msgBytes)
			}
		}

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() && len(buf) > 0 {
				continue
			}
			return
		}
	}
}

// processMessage tokenizes one message, asks the handler for a verdict and
// writes the framed ACK. A message that cannot be tokenized is rejected (AR).
func (s *MLLPServer) processMessage(conn net.Conn, raw []byte) {
	var ack *Message

	msg, err := Parse(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejecting unparsable message")
		ack = GenerateACK(&Message{}, AckReject, err.Error())
	} else {
		code, text := s.handler(msg)
		s.logger.Info().
			Str("type", msg.Type).
			Str("control_id", msg.ControlID).
			Str("ack", string(code)).
			Msg("message processed")
		ack = GenerateACK(msg, code, text)
	}

	conn.SetWriteDeadline(time.Now().Add(mllpWriteTimeout))
	if _, err := conn.Write(FrameMessage(SerializeMessage(ack))); err != nil {
		s.logger.Error().Err(err).Msg("ack write failed")
	}
}

// FrameMessage wraps raw HL7v2 bytes in MLLP framing:
//
//	<0x0B> + message + <0x1C><0x0D>
func FrameMessage(data []byte) []byte {
	frame := make([]byte, 0, len(data)+3)
	frame = append(frame, MLLPStartBlock)
	frame = append(frame, data...)
	frame = append(frame, MLLPEndBlock, MLLPCarriageReturn)
	return frame
}

// UnframeMessage extracts the first complete MLLP frame from data. It returns
// the payload, the bytes following the frame, and whether a frame was found.
func UnframeMessage(data []byte) (message []byte, rest []byte, found bool) {
	startIdx := bytes.IndexByte(data, MLLPStartBlock)
	if startIdx == -1 {
		return nil, data, false
	}

	endIdx := bytes.Index(data[startIdx+1:], []byte{MLLPEndBlock, MLLPCarriageReturn})
	if endIdx == -1 {
		return nil, data, false
	}
	endIdx += startIdx + 1

	return data[startIdx+1 : endIdx], data[endIdx+2:], true
}

// GenerateACK builds the acknowledgment for incoming. Sender and receiver are
// swapped and MSA-2 echoes the original control id. text, when set, becomes MSA-3.
func GenerateACK(incoming *Message, code AckCode, text string) *Message {
	trigger := ""
	if parts := strings.SplitN(incoming.Type, "^", 3); len(parts) >= 2 {
		trigger = parts[1]
	}
	version := incoming.Version
	if version == "" {
		version = "2.5"
	}

	now := time.Now().UTC()
	timestamp := now.Format("20060102150405")
	controlID := "ACK" + now.Format("20060102150405.000")

	ack := &Message{
		Type:         "ACK^" + trigger,
		ControlID:    controlID,
		Version:      version,
		Timestamp:    now,
		SendingApp:   incoming.ReceivingApp,
		SendingFac:   incoming.ReceivingFac,
		ReceivingApp: incoming.SendingApp,
		ReceivingFac: incoming.SendingFac,
	}

	msh := Segment{
		Name: "MSH",
		Fields: []Field{
			textField("|"),
			textField(`^~\&`),
			textField(ack.SendingApp),
			textField(ack.SendingFac),
			textField(ack.ReceivingApp),
			textField(ack.ReceivingFac),
			textField(timestamp),
			textField(""),
			parseField(ack.Type),
			textField(controlID),
			textField("P"),
			textField(version),
		},
	}

	msaFields := []Field{textField(string(code)), textField(incoming.ControlID)}
	if text != "" {
		msaFields = append(msaFields, textField(sanitizeText(text)))
	}

	ack.Segments = []Segment{msh, {Name: "MSA", Fields: msaFields}}
	return ack
}

func textField(v string) Field {
	return Field{Value: v, Components: []string{v}, Repeats: [][]string{{v}}}
}

// sanitizeText strips delimiters so free text cannot break the ACK framing.
func sanitizeText(s string) string {
	return strings.NewReplacer("|", " ", "^", " ", "~", " ", "&", " ", "\r", " ", "\n", " ").Replace(s)
}

// SerializeMessage renders msg back to wire form with \r segment separators.
func SerializeMessage(msg *Message) []byte {
	segments := make([]string, 0, len(msg.Segments))
	for _, seg := range msg.Segments {
		segments = append(segments, serializeSegment(seg))
	}
	return []byte(strings.Join(segments, "\r"))
}

func serializeSegment(seg Segment) string {
	if seg.Name == "MSH" {
		// Fields[0] is the separator itself, so it is not joined.
		if len(seg.Fields) < 2 {
			return "MSH|"
		}
		parts := make([]string, 0, len(seg.Fields)-1)
		for _, f := range seg.Fields[1:] {
			parts = append(parts, f.Value)
		}
		return "MSH|" + strings.Join(parts, "|")
	}

	parts := make([]string, len(seg.Fields))
	for i, f := range seg.Fields {
		parts[i] = f.Value
	}
	return seg.Name + "|" + strings.Join(parts, "|")
}
