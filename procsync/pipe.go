package procsync

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sync/errgroup"
)

// encMode is the CBOR encoder configured with Core Deterministic Encoding
// (RFC 8949 §4.2): the same message always produces identical frame bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR. Unknown
// fields are ignored for forward compatibility; any-typed targets decode
// maps as map[string]any.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("procsync: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("procsync: CBOR decoder initialization failed: " + err.Error())
	}
}

// PipeChannel frames messages as a CBOR stream over a reader/writer pair,
// in practice the stdio pipes of a child process. CBOR items are
// self-delimiting, so no extra length framing is needed.
//
// A clean EOF ends the Messages stream without a fault (the peer exited
// after closing its end); any other read error surfaces once on Faults and
// then ends the stream.
type PipeChannel struct {
	r io.Reader
	w io.Writer

	sendMu sync.Mutex
	enc    *cbor.Encoder

	messages chan *Message
	faults   chan error
	done     chan struct{}
	closed   atomic.Bool
	group    *errgroup.Group
}

// NewPipeChannel creates a PipeChannel and starts its read loop.
func NewPipeChannel(r io.Reader, w io.Writer) *PipeChannel {
	pc := &PipeChannel{
		r:        r,
		w:        w,
		enc:      encMode.NewEncoder(w),
		messages: make(chan *Message, channelBuffer),
		faults:   make(chan error, 1),
		done:     make(chan struct{}),
		group:    &errgroup.Group{},
	}

	pc.group.Go(pc.readLoop)

	return pc
}

func (c *PipeChannel) readLoop() error {
	defer close(c.messages)

	dec := decMode.NewDecoder(c.r)
	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) || c.closed.Load() {
				return nil
			}
			c.fault(err)
			return err
		}

		select {
		case c.messages <- &msg:
		case <-c.done:
			return nil
		}
	}
}

func (c *PipeChannel) Send(ctx context.Context, msg *Message) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// The CBOR encoder is not safe for concurrent use; pipe writes of one
	// frame are atomic under the lock.
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	return c.enc.Encode(msg)
}

func (c *PipeChannel) Messages() <-chan *Message {
	return c.messages
}

func (c *PipeChannel) Faults() <-chan error {
	return c.faults
}

// Close tears down the channel: underlying reader and writer are closed if
// they support it, which unblocks the read loop.
func (c *PipeChannel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)

	var errs []error
	if closer, ok := c.w.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if closer, ok := c.r.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}

	c.group.Wait()
	return errors.Join(errs...)
}

func (c *PipeChannel) fault(err error) {
	select {
	case c.faults <- err:
	default:
	}
}
