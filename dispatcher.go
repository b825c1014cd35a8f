package mqttv5

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log"

	"github.com/riftio/mqttv5/metrics"
	"github.com/riftio/mqttv5/packet"
	"github.com/riftio/mqttv5/router"
	"github.com/riftio/mqttv5/session"
)

const commandQueueDepth = 64

// Dispatcher is a single-threaded actor: it owns the reader and writer
// for one connection and is the only goroutine that mutates session
// state or writes to the wire. Everything else talks to it through a
// Handle.
type Dispatcher struct {
	reader *bufio.Reader
	writer io.Writer

	sess    *session.Session
	metrics *metrics.Collector

	commands chan command

	// pendingPublish holds publishCmd values whose receive-maximum quota
	// was exhausted when first attempted. They are retried in FIFO order
	// whenever an inbound ack frees a slot (see drainPendingPublishes),
	// never by blocking the run loop itself.
	pendingPublish []publishCmd

	done    chan struct{}
	doneErr error
}

// Done returns a channel closed once the run loop has terminated, for
// callers that need to select on connection loss alongside other work.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Err returns the run loop's terminal error. It is only meaningful
// after Done is closed; nil means the connection ended cleanly via a
// user-initiated Disconnect.
func (d *Dispatcher) Err() error {
	return d.doneErr
}

// Messages returns the delivery stream for the subscription identified
// by sid, the SID returned in a successful SubscribeResult. ok is false
// if no subscription is registered under that identifier (the subscribe
// was refused). Unsubscribing does not remove the registration.
func (d *Dispatcher) Messages(sid uint32) (stream <-chan *router.Message, ok bool) {
	return d.sess.Router.Queue(sid)
}

// NewDispatcher wraps rw (any transport satisfying io.Reader and
// io.Writer — TCP, TLS, a WebSocket binary stream, or an in-memory pipe
// in tests) and returns a Dispatcher, the Handle callers use to drive
// it, and the resolved Options, of which only Metrics is applied here.
// Run must be called, typically in its own goroutine, before
// any Handle call will make progress.
func NewDispatcher(rw io.ReadWriter, opts ...Option) (*Dispatcher, *Handle, Options) {
	o := newOptions(opts...)
	d := &Dispatcher{
		reader:   bufio.NewReader(rw),
		writer:   rw,
		sess:     session.New(o.Metrics),
		metrics:  o.Metrics,
		commands: make(chan command, commandQueueDepth),
		done:     make(chan struct{}),
	}
	return d, &Handle{d: d}, o
}

// Run executes the dispatcher's run loop until the connection terminates,
// and returns the terminal error (nil for a clean user-initiated
// disconnect). It must be called exactly once.
func (d *Dispatcher) Run(ctx context.Context) error {
	type decoded struct {
		pkt packet.Packet
		buf *bytes.Buffer
		n   int
	}
	inbound := make(chan decoded, 1)
	inboundErr := make(chan error, 1)
	readerDone := make(chan struct{})
	defer close(readerDone)

	go func() {
		for {
			pkt, buf, err := packet.Decode(d.reader)
			if err != nil {
				select {
				case inboundErr <- err:
				case <-readerDone:
				}
				return
			}
			select {
			case inbound <- decoded{pkt, buf, buf.Len()}:
			case <-readerDone:
				packet.ReleaseDecoded(buf)
				return
			}
		}
	}()

	var terminal error
	for {
		select {
		case cmd := <-d.commands:
			if err := d.applyCommand(cmd); err != nil {
				terminal = err
			}
		case dec := <-inbound:
			d.metrics.PacketReceived(packet.KindName[dec.pkt.Kind()], dec.n)
			err := d.applyInbound(dec.pkt)
			packet.ReleaseDecoded(dec.buf)
			if err != nil {
				terminal = err
			}
		case err := <-inboundErr:
			terminal = err
		case <-ctx.Done():
			terminal = ctx.Err()
		}
		if terminal != nil {
			return d.terminate(terminal)
		}
	}
}

func (d *Dispatcher) terminate(err error) error {
	var result error
	if !errors.Is(err, errDisconnectComplete) {
		result = err
		log.Printf("mqttv5: run loop terminating: clientId=%s, err=%v", d.sess.ClientID, err)
		reason := "error"
		if pe, ok := err.(*session.ProtocolError); ok {
			reason = "protocol_error: " + pe.Detail
		}
		d.metrics.Disconnected(reason)
	} else {
		d.metrics.Disconnected("user_disconnect")
	}
	d.sess.FailAll(connectionLostOr(err))
	for _, cmd := range d.pendingPublish {
		cmd.waiter.Fail(connectionLostOr(err))
	}
	d.pendingPublish = nil
	d.doneErr = result
	close(d.done)
	return result
}

// errDisconnectComplete is a sentinel applyCommand uses to signal a
// successful user-initiated disconnect, distinguishing it from a fatal
// error at the terminate() call site without adding a second return path
// through the run loop.
var errDisconnectComplete = errors.New("mqttv5: disconnect complete")

func connectionLostOr(err error) error {
	if errors.Is(err, errDisconnectComplete) {
		return session.ErrConnectionLost
	}
	return err
}

func (d *Dispatcher) write(p packet.Packet) error {
	buf := packet.GetBuffer()
	defer packet.PutBuffer(buf)
	if err := p.Pack(buf); err != nil {
		return err
	}
	n := buf.Len()
	if _, err := d.writer.Write(buf.Bytes()); err != nil {
		return err
	}
	d.metrics.PacketSent(packet.KindName[p.Kind()], n)
	return nil
}

func (d *Dispatcher) applyCommand(c command) error {
	switch cmd := c.(type) {
	case connectCmd:
		pkt := d.sess.BeginConnect(cmd.opts, cmd.waiter)
		if err := d.write(pkt); err != nil {
			cmd.waiter.Fail(err)
			return err
		}
		return nil

	case publishCmd:
		queued, err := d.beginAndSendPublish(cmd)
		if queued {
			d.pendingPublish = append(d.pendingPublish, cmd)
		}
		return err

	case subscribeCmd:
		pkt, err := d.sess.BeginSubscribe(cmd.opts, cmd.userProps, cmd.waiter)
		if err != nil {
			cmd.waiter.Fail(err)
			return nil
		}
		return d.write(pkt)

	case unsubscribeCmd:
		pkt, err := d.sess.BeginUnsubscribe(cmd.filters, cmd.userProps, cmd.waiter)
		if err != nil {
			cmd.waiter.Fail(err)
			return nil
		}
		return d.write(pkt)

	case pingCmd:
		pkt := d.sess.BeginPing(cmd.waiter)
		return d.write(pkt)

	case disconnectCmd:
		pkt := d.sess.BeginDisconnect(cmd.opts)
		err := d.write(pkt)
		cmd.waiter.Resolve(struct{}{})
		if err != nil {
			return err
		}
		return errDisconnectComplete
	}
	return nil
}

// beginAndSendPublish starts cmd's publish and writes it to the wire.
// queued reports that the receive-maximum quota was exhausted: the
// caller must hold onto cmd and retry it later via
// drainPendingPublishes rather than treating it as failed.
func (d *Dispatcher) beginAndSendPublish(cmd publishCmd) (queued bool, err error) {
	if cErr := cmd.ctx.Err(); cErr != nil {
		cmd.waiter.Fail(cErr)
		return false, nil
	}
	pkt, berr := d.sess.BeginPublish(cmd.ctx, cmd.opts, cmd.waiter)
	if berr == session.ErrQuotaExhausted {
		return true, nil
	}
	if berr != nil {
		cmd.waiter.Fail(berr)
		return false, nil
	}
	if werr := d.write(pkt); werr != nil {
		return false, werr
	}
	if pkt.QoS == 0 {
		cmd.waiter.Resolve(session.PubAckReason{Reason: packet.Success})
	}
	return false, nil
}

// drainPendingPublishes retries queued publishes in FIFO order after an
// inbound ack frees a receive-maximum slot. It stops at the first retry
// that is still exhausted, preserving arrival order for the rest.
func (d *Dispatcher) drainPendingPublishes() error {
	for len(d.pendingPublish) > 0 {
		cmd := d.pendingPublish[0]
		queued, err := d.beginAndSendPublish(cmd)
		if queued {
			return nil
		}
		d.pendingPublish = d.pendingPublish[1:]
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) applyInbound(p packet.Packet) error {
	if d.sess.State == session.AwaitingConnack {
		if _, ok := p.(*packet.Connack); !ok {
			return &session.ProtocolError{Detail: "packet other than CONNACK while awaiting CONNACK"}
		}
	}
	switch pkt := p.(type) {
	case *packet.Connack:
		if err := d.sess.HandleConnack(pkt); err != nil {
			return err
		}
		return nil

	case *packet.Publish:
		ack, err := d.sess.HandleInboundPublish(pkt)
		if err != nil {
			return err
		}
		if ack != nil {
			return d.write(ack)
		}
		return nil

	case *packet.Puback:
		if err := d.sess.HandlePuback(pkt); err != nil {
			return err
		}
		return d.drainPendingPublishes()

	case *packet.Pubrec:
		rel, err := d.sess.HandlePubrec(pkt)
		if err != nil {
			return err
		}
		if rel != nil {
			return d.write(rel)
		}
		// Broker refused the message: the flight ended here and its
		// quota slot is already free.
		return d.drainPendingPublishes()

	case *packet.Pubrel:
		return d.write(d.sess.HandlePubrel(pkt))

	case *packet.Pubcomp:
		if err := d.sess.HandlePubcomp(pkt); err != nil {
			return err
		}
		return d.drainPendingPublishes()

	case *packet.Suback:
		return d.sess.HandleSuback(pkt)

	case *packet.Unsuback:
		return d.sess.HandleUnsuback(pkt)

	case *packet.Pingresp:
		d.sess.HandlePingresp(pkt)
		return nil

	case *packet.Disconnect:
		return &session.Disconnected{Reason: pkt.ReasonCode, Properties: pkt.Properties}

	case *packet.Auth:
		return &session.ProtocolError{Detail: "inbound AUTH is not supported by this client"}

	default:
		return &session.ProtocolError{Detail: "unexpected packet kind from broker"}
	}
}
