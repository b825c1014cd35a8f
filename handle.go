package mqttv5

import (
	"context"

	"github.com/riftio/mqttv5/session"
)

// Handle is the application-facing entry point for a single connection.
// It is a thin, cheap-to-copy sender onto the Dispatcher's command
// queue: every method builds a command carrying a fresh waiter, sends
// it, and blocks on that same waiter until the dispatcher's run loop
// resolves it from the matching acknowledgement (or the connection
// terminates first). Handle is safe for concurrent use by multiple
// goroutines.
type Handle struct {
	d *Dispatcher
}

// Connect sends a CONNECT and waits for the broker's CONNACK.
func (h *Handle) Connect(ctx context.Context, opts ConnectOptions) (ConnectResult, error) {
	w := session.NewWaiter[session.ConnectResult]()
	cmd := connectCmd{opts: opts, waiter: w}
	if err := h.send(ctx, cmd); err != nil {
		return ConnectResult{}, err
	}
	return w.Wait(ctx)
}

// Publish sends a PUBLISH. For QoS 0 it returns as soon as the frame is
// written; for QoS 1/2 it waits for the corresponding PUBACK or
// PUBREC/PUBREL/PUBCOMP handshake to complete.
func (h *Handle) Publish(ctx context.Context, opts PublishOptions) (PubAckReason, error) {
	w := session.NewWaiter[session.PubAckReason]()
	cmd := publishCmd{ctx: ctx, opts: opts, waiter: w}
	if err := h.send(ctx, cmd); err != nil {
		return PubAckReason{}, err
	}
	return w.Wait(ctx)
}

// Subscribe sends a SUBSCRIBE for the given filters and waits for
// SUBACK. On success, SubscribeResult.SID identifies the router queue
// future PUBLISH frames carrying a matching Subscription Identifier
// will be routed to; pass it to Messages to get the delivery stream.
func (h *Handle) Subscribe(ctx context.Context, opts []SubscriptionOptions, userProps ...UserProperty) (SubscribeResult, error) {
	w := session.NewWaiter[session.SubscribeResult]()
	cmd := subscribeCmd{opts: opts, userProps: userProps, waiter: w}
	if err := h.send(ctx, cmd); err != nil {
		return SubscribeResult{}, err
	}
	return w.Wait(ctx)
}

// Messages returns the delivery stream for the subscription identified
// by sid (SubscribeResult.SID). ok is false if no subscription is
// currently registered under that identifier.
func (h *Handle) Messages(sid uint32) (stream <-chan *Message, ok bool) {
	return h.d.Messages(sid)
}

// Unsubscribe sends an UNSUBSCRIBE for the given filters and waits for
// UNSUBACK.
func (h *Handle) Unsubscribe(ctx context.Context, filters []string, userProps ...UserProperty) (UnsubscribeResult, error) {
	w := session.NewWaiter[session.UnsubscribeResult]()
	cmd := unsubscribeCmd{filters: filters, userProps: userProps, waiter: w}
	if err := h.send(ctx, cmd); err != nil {
		return UnsubscribeResult{}, err
	}
	return w.Wait(ctx)
}

// Ping sends a PINGREQ and waits for PINGRESP. Callers are responsible
// for invoking this at intervals shorter than the negotiated keep-alive;
// the dispatcher does not schedule pings itself.
func (h *Handle) Ping(ctx context.Context) error {
	w := session.NewWaiter[struct{}]()
	cmd := pingCmd{waiter: w}
	if err := h.send(ctx, cmd); err != nil {
		return err
	}
	_, err := w.Wait(ctx)
	return err
}

// Disconnect sends a DISCONNECT and returns once the dispatcher has
// attempted the write; a write error is not reported here. This always
// ends the connection: Run returns nil afterward, or the write error if
// the write failed.
func (h *Handle) Disconnect(ctx context.Context, opts DisconnectOptions) error {
	w := session.NewWaiter[struct{}]()
	cmd := disconnectCmd{opts: opts, waiter: w}
	if err := h.send(ctx, cmd); err != nil {
		return err
	}
	_, err := w.Wait(ctx)
	return err
}

func (h *Handle) send(ctx context.Context, cmd command) error {
	select {
	case h.d.commands <- cmd:
		return nil
	case <-h.d.done:
		return session.ErrConnectionLost
	case <-ctx.Done():
		return ctx.Err()
	}
}
