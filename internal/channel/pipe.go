package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

const pipeBufferSize = 64

// Peer is the backend end of an in-memory pipe. It reads the frames the
// Conn writes and pushes events and call results back.
type Peer struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

// NewPipe returns a connected Conn and the backend Peer driving it.
func NewPipe() (*Conn, *Peer) {
	toPeer := make(chan []byte, pipeBufferSize)
	toConn := make(chan []byte, pipeBufferSize)
	done := make(chan struct{})
	once := &sync.Once{}

	conn := newConn(&pipeTransport{in: toConn, out: toPeer, done: done, once: once})
	peer := &Peer{in: toPeer, out: toConn, done: done, once: once}
	return conn, peer
}

// Next returns the next frame written by the Conn.
func (p *Peer) Next(ctx context.Context) (Frame, error) {
	select {
	case data := <-p.in:
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			return Frame{}, fmt.Errorf("decoding frame: %w", err)
		}
		return f, nil
	case <-p.done:
		return Frame{}, ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Push sends a named event to the Conn.
func (p *Peer) Push(ctx context.Context, name string, args ...any) error {
	encoded, err := encodeArgs(args)
	if err != nil {
		return err
	}
	return p.send(ctx, Frame{Kind: KindEvent, Name: name, Args: encoded})
}

// Reply answers call id. A non-empty errText fails the call.
func (p *Peer) Reply(ctx context.Context, id string, result any, errText string) error {
	f := Frame{Kind: KindResult, ID: id, Error: errText}
	if errText == "" {
		raw, err := json.Marshal(result)
		if err != nil {
			return err
		}
		f.Result = raw
	}
	return p.send(ctx, f)
}

// SendRaw writes data verbatim, bypassing frame encoding.
func (p *Peer) SendRaw(ctx context.Context, data []byte) error {
	select {
	case p.out <- data:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close hangs up from the backend side.
func (p *Peer) Close() {
	p.once.Do(func() { close(p.done) })
}

func (p *Peer) send(ctx context.Context, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return p.SendRaw(ctx, data)
}

type pipeTransport struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

func (t *pipeTransport) readMessage() ([]byte, error) {
	// frames queued before a hang-up are still delivered
	select {
	case data := <-t.in:
		return data, nil
	default:
	}
	select {
	case data := <-t.in:
		return data, nil
	case <-t.done:
		return nil, ErrClosed
	}
}

func (t *pipeTransport) writeMessage(ctx context.Context, data []byte) error {
	select {
	case t.out <- data:
		return nil
	case <-t.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *pipeTransport) close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}
