// Package router matches inbound PUBLISH packets to the subscriptions
// that requested them: first by subscription identifier when the broker
// echoed one back, falling back to topic-filter wildcard matching
// otherwise.
package router

import (
	"strings"
	"sync"

	"github.com/riftio/mqttv5/packet"
)

// Subscription is one active topic filter registration. Delivered
// messages are pushed onto Queue; callers own Queue and are responsible
// for draining it.
type Subscription struct {
	Filter  string
	Group   string // non-empty for a shared subscription ($share/<Group>/<Filter>)
	Options packet.Subscription

	// SID is the subscription identifier the session attached to the
	// SUBSCRIBE packet, or 0 if none was requested. A PUBLISH carrying
	// this identifier routes to this subscription directly without a
	// wildcard scan.
	SID uint32

	Queue chan *Message
}

// Message is a delivered application message, decoupled from
// packet.Publish so the router's callers don't need to reach into the
// wire type.
type Message struct {
	Topic      string
	Payload    []byte
	QoS        byte
	Retain     bool
	Properties *packet.Properties
}

// Router holds the set of active subscriptions for one session.
type Router struct {
	mu sync.RWMutex
	// bySID groups every Subscription registered under one subscription
	// identifier. A single SUBSCRIBE packet carries one identifier for
	// all of its filters (see session.BeginSubscribe), so a SUBACK
	// granting more than one of those filters registers more than one
	// Subscription under the same sid.
	bySID map[uint32][]*Subscription
	all   []*Subscription
}

// New returns an empty Router.
func New() *Router {
	return &Router{bySID: make(map[uint32][]*Subscription)}
}

// ParseFilter splits a SUBSCRIBE topic filter into its shared-subscription
// group (if any) and the underlying filter, per MQTT v5.0 §4.8.2. A filter
// of the form "$share/<group>/<filter>" shares delivery round-robin
// across every client subscribed to the same group+filter; group and
// filter must each be non-empty.
func ParseFilter(raw string) (group, filter string, shared bool) {
	const prefix = "$share/"
	if !strings.HasPrefix(raw, prefix) {
		return "", raw, false
	}
	rest := raw[len(prefix):]
	idx := strings.IndexByte(rest, '/')
	if idx <= 0 || idx == len(rest)-1 {
		return "", raw, false
	}
	return rest[:idx], rest[idx+1:], true
}

// Add registers a subscription. queueDepth is the buffer size of a newly
// made Queue; the session drops a message rather than block when the
// Queue is full. Filters
// sharing a nonzero sid (granted from the same SUBSCRIBE packet) share
// a single Queue, since a caller asks for delivery by sid, not by
// filter.
func (r *Router) Add(filter string, opts packet.Subscription, sid uint32, queueDepth int) *Subscription {
	group, baseFilter, _ := ParseFilter(filter)

	r.mu.Lock()
	defer r.mu.Unlock()

	var queue chan *Message
	if sid != 0 {
		if siblings := r.bySID[sid]; len(siblings) > 0 {
			queue = siblings[0].Queue
		}
	}
	if queue == nil {
		queue = make(chan *Message, queueDepth)
	}

	sub := &Subscription{
		Filter:  baseFilter,
		Group:   group,
		Options: opts,
		SID:     sid,
		Queue:   queue,
	}
	if sid != 0 {
		r.bySID[sid] = append(r.bySID[sid], sub)
	}
	r.all = append(r.all, sub)
	return sub
}

// Queue returns the consumer channel registered under sid, or ok=false
// if no subscription is currently registered under that identifier.
func (r *Router) Queue(sid uint32) (queue <-chan *Message, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.bySID[sid]
	if len(subs) == 0 {
		return nil, false
	}
	return subs[0].Queue, true
}

// Remove unregisters every subscription whose filter, with any
// "$share/<group>/" prefix stripped, equals filter's, whatever group it
// was registered under.
func (r *Router) Remove(filter string) {
	_, baseFilter, _ := ParseFilter(filter)
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.all[:0]
	for _, sub := range r.all {
		if sub.Filter == baseFilter {
			if sub.SID != 0 {
				r.removeFromSID(sub.SID, sub)
			}
			continue
		}
		kept = append(kept, sub)
	}
	r.all = kept
}

func (r *Router) removeFromSID(sid uint32, target *Subscription) {
	subs := r.bySID[sid]
	kept := subs[:0]
	for _, sub := range subs {
		if sub != target {
			kept = append(kept, sub)
		}
	}
	if len(kept) == 0 {
		delete(r.bySID, sid)
		return
	}
	r.bySID[sid] = kept
}

// Route returns every subscription that a PUBLISH for topic, carrying the
// given subscription identifiers, should be delivered to. When sids is
// non-empty, each identifier's group of subscriptions is narrowed by
// FilterMatches: a single identifier can cover several filters from one
// SUBSCRIBE packet, and only the ones actually matching topic should
// receive this message. Route falls back to a full wildcard scan only
// when the PUBLISH carried no subscription identifier at all.
func (r *Router) Route(topic string, sids []uint32) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(sids) > 0 {
		var matched []*Subscription
		for _, sid := range sids {
			for _, sub := range r.bySID[sid] {
				if FilterMatches(sub.Filter, topic) {
					matched = append(matched, sub)
				}
			}
		}
		return matched
	}

	var matched []*Subscription
	for _, sub := range r.all {
		if FilterMatches(sub.Filter, topic) {
			matched = append(matched, sub)
		}
	}
	return matched
}

// FilterMatches reports whether topic matches filter under MQTT v5.0
// §4.7 wildcard rules: "+" matches exactly one topic level, "#" (legal
// only as the final level) matches that level and everything below it,
// and a filter beginning with "+" or "#" never matches a topic whose
// first level begins with "$" (MQTT-4.7.2-1).
func FilterMatches(filter, topic string) bool {
	if strings.HasPrefix(topic, "$") && (strings.HasPrefix(filter, "+") || strings.HasPrefix(filter, "#")) {
		return false
	}
	fLevels := strings.Split(filter, "/")
	tLevels := strings.Split(topic, "/")

	for i, f := range fLevels {
		if f == "#" {
			return i == len(fLevels)-1
		}
		if i >= len(tLevels) {
			return false
		}
		if f == "+" {
			continue
		}
		if f != tLevels[i] {
			return false
		}
	}
	return len(fLevels) == len(tLevels)
}
