package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxFrameSize bounds a single control frame. Commands are a few bytes;
// anything larger is garbage or a confused peer.
const MaxFrameSize = 64 << 10

const frameHeaderSize = 4

// ErrProtocol is returned for frames or payloads that cannot be decoded
// into a Command.
var ErrProtocol = errors.New("ipc: protocol error")

// wireCommand is the on-the-wire shape of a Command.
type wireCommand struct {
	Tag   string `msgpack:"tag"`
	Value *bool  `msgpack:"value,omitempty"`
}

// Encode serializes a command payload (without framing).
func Encode(c Command) ([]byte, error) {
	if !c.Kind.Valid() {
		return nil, fmt.Errorf("failed to encode command: unknown kind %d", uint8(c.Kind))
	}
	w := wireCommand{Tag: c.Kind.String()}
	if c.Kind.HasStatus() {
		running := c.Running
		w.Value = &running
	}

	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&w); err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a command payload produced by Encode.
func Decode(data []byte) (Command, error) {
	if len(data) == 0 {
		return Command{}, fmt.Errorf("%w: empty payload", ErrProtocol)
	}

	var w wireCommand
	r := bytes.NewReader(data)
	if err := msgpack.NewDecoder(r).Decode(&w); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if r.Len() != 0 {
		return Command{}, fmt.Errorf("%w: %d trailing bytes", ErrProtocol, r.Len())
	}

	kind, ok := kindsByName[w.Tag]
	if !ok {
		return Command{}, fmt.Errorf("%w: unknown tag %q", ErrProtocol, w.Tag)
	}
	if kind.HasStatus() {
		if w.Value == nil {
			return Command{}, fmt.Errorf("%w: %s without value", ErrProtocol, kind)
		}
		return Command{Kind: kind, Running: *w.Value}, nil
	}
	if w.Value != nil {
		return Command{}, fmt.Errorf("%w: unexpected value for %s", ErrProtocol, kind)
	}
	return Command{Kind: kind}, nil
}

// WriteFrame writes payload prefixed with its big-endian length.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) == 0 || len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: frame size %d out of range", ErrProtocol, len(payload))
	}
	frame := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[frameHeaderSize:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame. A short header or body is
// reported as ErrProtocol; a clean EOF before any byte is returned as io.EOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated header", ErrProtocol)
		}
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size == 0 || size > MaxFrameSize {
		return nil, fmt.Errorf("%w: frame size %d out of range", ErrProtocol, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated payload", ErrProtocol)
		}
		return nil, err
	}
	return payload, nil
}

// WriteCommand encodes c and writes it as a single frame.
func WriteCommand(w io.Writer, c Command) error {
	payload, err := Encode(c)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

// ReadCommand reads a single frame and decodes it.
func ReadCommand(r io.Reader) (Command, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return Command{}, err
	}
	return Decode(payload)
}
