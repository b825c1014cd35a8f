package mqttv5

import (
	"time"

	"github.com/riftio/mqttv5/internal/idgen"
	"github.com/riftio/mqttv5/metrics"
	"github.com/riftio/mqttv5/session"
)

// Options holds settings built up via functional Option values.
// NewDispatcher applies only Metrics; the other fields are not sent to
// the broker by themselves and take effect only when the caller copies
// them into the ConnectOptions passed to Handle.Connect.
type Options struct {
	ClientID   string
	CleanStart bool
	KeepAlive  time.Duration

	ReceiveMaximum    uint16
	TopicAliasMaximum uint16
	MaximumPacketSize *uint32

	Username *string
	Password []byte

	Will *session.WillMessage

	UserProperties []UserProperty

	Metrics *metrics.Collector
}

// Option mutates Options.
type Option func(*Options)

func newOptions(opts ...Option) Options {
	options := Options{
		ClientID:       idgen.ClientID(),
		CleanStart:     true,
		KeepAlive:      30 * time.Second,
		ReceiveMaximum: 65535,
	}
	for _, o := range opts {
		o(&options)
	}
	return options
}

// WithClientID overrides the generated default client identifier.
func WithClientID(id string) Option {
	return func(o *Options) { o.ClientID = id }
}

// WithCleanStart sets the CONNECT Clean Start flag. Defaults to true;
// this core does not implement session resumption (see DESIGN.md).
func WithCleanStart(clean bool) Option {
	return func(o *Options) { o.CleanStart = clean }
}

// WithKeepAlive sets the keep-alive interval. The caller remains
// responsible for calling Ping at shorter intervals; the core does not
// schedule pings itself.
func WithKeepAlive(d time.Duration) Option {
	return func(o *Options) { o.KeepAlive = d }
}

// WithReceiveMaximum advertises how many concurrent unacknowledged QoS>0
// inbound PUBLISH frames this client accepts.
func WithReceiveMaximum(n uint16) Option {
	return func(o *Options) { o.ReceiveMaximum = n }
}

// WithTopicAliasMaximum advertises the size of the outbound topic alias
// table this client is willing to maintain.
func WithTopicAliasMaximum(n uint16) Option {
	return func(o *Options) { o.TopicAliasMaximum = n }
}

// WithMaximumPacketSize advertises the largest packet this client will
// accept from the broker.
func WithMaximumPacketSize(n uint32) Option {
	return func(o *Options) { o.MaximumPacketSize = &n }
}

// WithCredentials sets the CONNECT username/password.
func WithCredentials(username string, password []byte) Option {
	return func(o *Options) {
		o.Username = &username
		o.Password = password
	}
}

// WithWill sets the last-will-and-testament message.
func WithWill(will session.WillMessage) Option {
	return func(o *Options) { o.Will = &will }
}

// WithUserProperty appends a CONNECT user property.
func WithUserProperty(name, value string) Option {
	return func(o *Options) {
		o.UserProperties = append(o.UserProperties, UserProperty{Name: name, Value: value})
	}
}

// WithMetrics attaches a metrics.Collector to the Dispatcher. A nil
// collector (the default) disables instrumentation entirely.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Options) { o.Metrics = c }
}
