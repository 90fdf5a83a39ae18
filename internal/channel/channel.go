// Package channel implements the duplex, named-event transport between
// tunnelctl and the tunnel backend.
//
// Four frame kinds travel over the transport:
//
//	{"kind":"event","name":"statusUpdate","args":["ready",""]}       backend -> tunnelctl
//	{"kind":"emit","name":"tunnel_check_result","args":[true]}       tunnelctl -> backend
//	{"kind":"call","id":"<uuid>","name":"GetConfig","args":[]}       tunnelctl -> backend
//	{"kind":"result","id":"<uuid>","result":{...},"error":""}        backend -> tunnelctl
//
// Events are delivered in arrival order on Events(). Calls are matched to
// their result frame by id.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"tunnelctl/pkg/logging"
)

const subsystem = "Channel"

// Frame kinds.
const (
	KindEvent  = "event"
	KindEmit   = "emit"
	KindCall   = "call"
	KindResult = "result"
)

// eventBufferSize bounds how far the reader may run ahead of the consumer.
const eventBufferSize = 64

// ErrClosed is returned for operations on a closed channel, and by calls that
// were still pending when the connection went away.
var ErrClosed = errors.New("notification channel closed")

// Frame is a single message on the wire.
type Frame struct {
	Kind   string            `json:"kind"`
	ID     string            `json:"id,omitempty"`
	Name   string            `json:"name,omitempty"`
	Args   []json.RawMessage `json:"args,omitempty"`
	Result json.RawMessage   `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// Event is a named notification pushed by the backend.
type Event struct {
	Name string
	Args []json.RawMessage
}

// RemoteError is returned by Call when the backend answered with an error.
type RemoteError struct {
	Name    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend rejected %s: %s", e.Name, e.Message)
}

// NotificationChannel is the transport the coordinator talks to the backend through.
type NotificationChannel interface {
	// Events returns the inbound notification stream. It is closed when the
	// connection ends.
	Events() <-chan Event

	// Call invokes a backend command and waits for its result.
	Call(ctx context.Context, name string, args ...any) (json.RawMessage, error)

	// Emit sends a fire-and-forget event. It returns once the frame is written.
	Emit(ctx context.Context, name string, args ...any) error

	// Close tears the connection down. Pending calls fail with ErrClosed.
	Close() error
}

// transport moves raw frames. Implementations need not be safe for
// concurrent writers; Conn serializes writes.
type transport interface {
	readMessage() ([]byte, error)
	writeMessage(ctx context.Context, data []byte) error
	close() error
}

type callResult struct {
	raw json.RawMessage
	err error
}

type pendingCall struct {
	name string
	ch   chan callResult
}

// Conn is a NotificationChannel over an arbitrary frame transport.
type Conn struct {
	t transport

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]pendingCall
	closed  bool

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	readDone  chan struct{}
}

var _ NotificationChannel = (*Conn)(nil)

func newConn(t transport) *Conn {
	c := &Conn{
		t:        t,
		pending:  make(map[string]pendingCall),
		events:   make(chan Event, eventBufferSize),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Events implements NotificationChannel.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Done is closed once the read side of the connection has stopped.
func (c *Conn) Done() <-chan struct{} {
	return c.readDone
}

// Call implements NotificationChannel.
func (c *Conn) Call(ctx context.Context, name string, args ...any) (json.RawMessage, error) {
	encoded, err := encodeArgs(args)
	if err != nil {
		return nil, fmt.Errorf("encoding arguments for %s: %w", name, err)
	}

	id := uuid.NewString()
	resultCh := make(chan callResult, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = pendingCall{name: name, ch: resultCh}
	c.mu.Unlock()

	if err := c.write(ctx, Frame{Kind: KindCall, ID: id, Name: name, Args: encoded}); err != nil {
		c.forget(id)
		return nil, err
	}

	select {
	case res := <-resultCh:
		return res.raw, res.err
	case <-ctx.Done():
		c.forget(id)
		return nil, fmt.Errorf("waiting for %s result: %w", name, ctx.Err())
	}
}

// Emit implements NotificationChannel.
func (c *Conn) Emit(ctx context.Context, name string, args ...any) error {
	encoded, err := encodeArgs(args)
	if err != nil {
		return fmt.Errorf("encoding arguments for %s: %w", name, err)
	}
	return c.write(ctx, Frame{Kind: KindEmit, Name: name, Args: encoded})
}

// Close implements NotificationChannel.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.t.close()
	})
	<-c.readDone
	return err
}

func (c *Conn) write(ctx context.Context, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", f.Kind, err)
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.t.writeMessage(ctx, data); err != nil {
		if errors.Is(err, ErrClosed) {
			return err
		}
		return fmt.Errorf("writing %s %s: %w", f.Kind, f.Name, err)
	}
	return nil
}

func (c *Conn) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) readLoop() {
	defer close(c.readDone)
	defer c.failPending()
	defer close(c.events)

	for {
		data, err := c.t.readMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if !errors.Is(err, ErrClosed) {
					logging.Warn(subsystem, "Connection lost: %v", err)
				}
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			logging.Warn(subsystem, "Skipping malformed frame: %v", err)
			continue
		}

		switch f.Kind {
		case KindEvent:
			if f.Name == "" {
				logging.Warn(subsystem, "Skipping event frame without a name")
				continue
			}
			select {
			case c.events <- Event{Name: f.Name, Args: f.Args}:
			case <-c.done:
				return
			}
		case KindResult:
			c.deliver(f)
		default:
			logging.Warn(subsystem, "Skipping frame of unexpected kind %q", f.Kind)
		}
	}
}

func (c *Conn) deliver(f Frame) {
	c.mu.Lock()
	call, ok := c.pending[f.ID]
	delete(c.pending, f.ID)
	c.mu.Unlock()

	if !ok {
		logging.Debug(subsystem, "Dropping result for unknown call %s", f.ID)
		return
	}
	if f.Error != "" {
		call.ch <- callResult{err: &RemoteError{Name: call.name, Message: f.Error}}
		return
	}
	call.ch <- callResult{raw: f.Result}
}

func (c *Conn) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, call := range c.pending {
		call.ch <- callResult{err: ErrClosed}
		delete(c.pending, id)
	}
}

func encodeArgs(args []any) ([]json.RawMessage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
