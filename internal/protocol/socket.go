package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gekko3d/playform/internal/gekkolog"
	"github.com/golang/snappy"
)

// ReadStatus tags what TryRead returned.
type ReadStatus int

const (
	Empty ReadStatus = iota
	Terminating
	Success
)

// ReadResult is TryRead's return value.
type ReadResult struct {
	Status ReadStatus
	Data   []byte
}

// Socket is a framed byte channel: non-blocking reads of whole
// frames, logged-not-propagated writes.
type Socket interface {
	TryRead() ReadResult
	Write(data []byte)
}

// maxFrameSize bounds a single frame at 4 GiB; a frame this large
// would indicate a corrupt length prefix, not a real payload.
const maxFrameSize uint64 = 4 << 30

// Conn is a Socket backed by a real net.Conn: a 4-byte big-endian
// length prefix per frame, read on a dedicated goroutine that feeds a
// buffered channel so TryRead never blocks.
type Conn struct {
	conn net.Conn
	log  gekkolog.Logger

	frames chan []byte
	term   chan struct{}
	termed bool
	mu     sync.Mutex
}

// NewConn wraps conn, starting its background read loop.
func NewConn(conn net.Conn, log gekkolog.Logger) *Conn {
	if log == nil {
		log = gekkolog.NewNop()
	}
	c := &Conn{
		conn:   conn,
		log:    log,
		frames: make(chan []byte, 64),
		term:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.term)
	sizeBuf := make([]byte, 4)
	for {
		if _, err := io.ReadFull(c.conn, sizeBuf); err != nil {
			c.log.Debugf("protocol: read loop ending: %v", err)
			return
		}
		size := binary.BigEndian.Uint32(sizeBuf)
		if uint64(size) > maxFrameSize {
			c.log.Warnf("protocol: frame size %d exceeds limit, dropping connection", size)
			return
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(c.conn, buf); err != nil {
			c.log.Debugf("protocol: read loop ending mid-frame: %v", err)
			return
		}
		c.frames <- buf
	}
}

// TryRead returns the next buffered frame without blocking, Empty if
// none is ready yet, or Terminating once the connection has closed
// and every buffered frame has been drained.
func (c *Conn) TryRead() ReadResult {
	select {
	case buf := <-c.frames:
		return ReadResult{Status: Success, Data: buf}
	default:
	}
	select {
	case buf := <-c.frames:
		return ReadResult{Status: Success, Data: buf}
	case <-c.term:
		return ReadResult{Status: Terminating}
	default:
		return ReadResult{Status: Empty}
	}
}

// Write sends one length-prefixed frame. Failures are logged, not
// returned: callers cannot act on a dead connection any differently
// than on a slow one, so there is nothing useful an error return
// would let them do.
func (c *Conn) Write(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := c.conn.Write(header[:]); err != nil {
		c.log.Warnf("protocol: write failed: %v", err)
		return
	}
	if _, err := c.conn.Write(data); err != nil {
		c.log.Warnf("protocol: write failed: %v", err)
	}
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.conn.Close() }

// Codec encodes/decodes gob messages onto frame payloads, compressing
// payloads above threshold bytes with snappy so a large Voxels batch
// doesn't dominate a tick's wire time; small, frequent messages (Ping,
// UpdatePlayer) skip compression entirely since snappy's per-call
// overhead would outweigh the saving.
type Codec struct {
	Threshold int
}

const (
	flagRaw    byte = 0
	flagSnappy byte = 1
)

// Encode gob-encodes msg (a ClientToServer or ServerToClient value)
// and returns a frame payload ready for Socket.Write.
func (c Codec) Encode(msg any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&msg); err != nil {
		return nil, fmt.Errorf("protocol: encoding message: %w", err)
	}
	payload := buf.Bytes()
	if c.Threshold > 0 && len(payload) > c.Threshold {
		return append([]byte{flagSnappy}, snappy.Encode(nil, payload)...), nil
	}
	return append([]byte{flagRaw}, payload...), nil
}

// Decode reverses Encode, returning the decoded message's concrete
// registered value; callers type-assert it to ClientToServer or
// ServerToClient.
func (c Codec) Decode(frame []byte) (any, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("protocol: empty frame")
	}
	flag, payload := frame[0], frame[1:]
	if flag == flagSnappy {
		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: snappy decode: %w", err)
		}
		payload = decoded
	}
	var msg any
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&msg); err != nil {
		return nil, fmt.Errorf("protocol: decoding message: %w", err)
	}
	return msg, nil
}

// pipeSocket is an in-memory Socket backed by a channel, for tests
// that want two ends of a connection without a real net.Conn.
type pipeSocket struct {
	out    chan<- []byte
	in     <-chan []byte
	closed chan struct{}
	once   sync.Once
}

// NewPipe returns two connected in-memory Sockets: writes to one are
// readable from the other.
func NewPipe() (Socket, Socket) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	a := &pipeSocket{out: ab, in: ba, closed: make(chan struct{})}
	b := &pipeSocket{out: ba, in: ab, closed: make(chan struct{})}
	return a, b
}

func (p *pipeSocket) TryRead() ReadResult {
	select {
	case buf := <-p.in:
		return ReadResult{Status: Success, Data: buf}
	case <-p.closed:
		return ReadResult{Status: Terminating}
	default:
		return ReadResult{Status: Empty}
	}
}

func (p *pipeSocket) Write(data []byte) {
	cpy := append([]byte(nil), data...)
	select {
	case p.out <- cpy:
	case <-p.closed:
	}
}

func (p *pipeSocket) Close() {
	p.once.Do(func() { close(p.closed) })
}
