package mqttv5

import (
	"context"

	"github.com/riftio/mqttv5/packet"
	"github.com/riftio/mqttv5/session"
)

// command is whatever a Handle sends on the intake queue. The run loop
// type-switches on it; each variant bundles its request and a one-shot
// waiter the calling goroutine blocks on.
type command interface{ isCommand() }

type connectCmd struct {
	opts   session.ConnectOptions
	waiter *session.Waiter[session.ConnectResult]
}

type publishCmd struct {
	ctx    context.Context
	opts   session.PublishOptions
	waiter *session.Waiter[session.PubAckReason]
}

type subscribeCmd struct {
	opts      []session.SubscriptionOptions
	userProps []packet.UserProperty
	waiter    *session.Waiter[session.SubscribeResult]
}

type unsubscribeCmd struct {
	filters   []string
	userProps []packet.UserProperty
	waiter    *session.Waiter[session.UnsubscribeResult]
}

type pingCmd struct {
	waiter *session.Waiter[struct{}]
}

type disconnectCmd struct {
	opts   session.DisconnectOptions
	waiter *session.Waiter[struct{}]
}

func (connectCmd) isCommand()     {}
func (publishCmd) isCommand()     {}
func (subscribeCmd) isCommand()   {}
func (unsubscribeCmd) isCommand() {}
func (pingCmd) isCommand()        {}
func (disconnectCmd) isCommand()  {}
