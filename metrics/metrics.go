// Package metrics wires dispatcher-level counters into Prometheus. A nil
// *Collector is valid and a no-op, so instrumentation stays optional
// without sprinkling nil checks through the dispatcher.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds the per-connection counters and gauges a Dispatcher
// reports against. Register it with a prometheus.Registerer to expose it.
type Collector struct {
	PacketsReceived *prometheus.CounterVec
	BytesReceived   prometheus.Counter
	PacketsSent     *prometheus.CounterVec
	BytesSent       prometheus.Counter

	InFlightOutbound prometheus.Gauge
	InFlightInbound  prometheus.Gauge

	Disconnects *prometheus.CounterVec
}

// New builds a Collector with unregistered metrics. Call Register to
// attach it to a prometheus.Registerer.
func New() *Collector {
	return &Collector{
		PacketsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqttv5_packets_received_total",
			Help: "Control packets received, by kind.",
		}, []string{"kind"}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqttv5_bytes_received_total",
			Help: "Raw bytes read from the transport.",
		}),
		PacketsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqttv5_packets_sent_total",
			Help: "Control packets sent, by kind.",
		}, []string{"kind"}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqttv5_bytes_sent_total",
			Help: "Raw bytes written to the transport.",
		}),
		InFlightOutbound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqttv5_inflight_outbound",
			Help: "QoS 1/2 publishes awaiting acknowledgement.",
		}),
		InFlightInbound: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqttv5_inflight_inbound",
			Help: "QoS 2 publishes awaiting PUBREL/PUBCOMP.",
		}),
		Disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqttv5_disconnects_total",
			Help: "Session terminations, by reason.",
		}, []string{"reason"}),
	}
}

// Register adds every metric to reg. Panics on duplicate registration,
// matching prometheus.MustRegister's contract.
func (c *Collector) Register(reg prometheus.Registerer) {
	if c == nil {
		return
	}
	reg.MustRegister(c.PacketsReceived, c.BytesReceived, c.PacketsSent, c.BytesSent,
		c.InFlightOutbound, c.InFlightInbound, c.Disconnects)
}

func (c *Collector) PacketReceived(kind string, n int) {
	if c == nil {
		return
	}
	c.PacketsReceived.WithLabelValues(kind).Inc()
	c.BytesReceived.Add(float64(n))
}

func (c *Collector) PacketSent(kind string, n int) {
	if c == nil {
		return
	}
	c.PacketsSent.WithLabelValues(kind).Inc()
	c.BytesSent.Add(float64(n))
}

func (c *Collector) SetInFlightOutbound(n int) {
	if c == nil {
		return
	}
	c.InFlightOutbound.Set(float64(n))
}

func (c *Collector) SetInFlightInbound(n int) {
	if c == nil {
		return
	}
	c.InFlightInbound.Set(float64(n))
}

func (c *Collector) Disconnected(reason string) {
	if c == nil {
		return
	}
	c.Disconnects.WithLabelValues(reason).Inc()
}
