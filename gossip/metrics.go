package gossip

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "gms"
	metricsSubsystem = "gossip"
)

// Metrics holds the protocol counters of a single gossiper.
type Metrics struct {
	rounds           prometheus.Counter
	messagesSent     *prometheus.CounterVec
	messagesReceived *prometheus.CounterVec
	sendFailures     *prometheus.CounterVec
	statesAccepted   prometheus.Counter
	statesRejected   *prometheus.CounterVec
	discoveries      prometheus.Counter
	convictions      prometheus.Counter
	forgotten        prometheus.Counter
	members          *prometheus.GaugeVec
	phi              prometheus.Histogram
}

// NewMetrics creates the protocol counters and registers them with reg,
// unless it is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "rounds_total",
			Help:      "Number of gossip rounds performed.",
		}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "messages_sent_total",
			Help:      "Number of protocol messages sent, by type.",
		}, []string{"type"}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "messages_received_total",
			Help:      "Number of protocol messages received, by type.",
		}, []string{"type"}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "send_failures_total",
			Help:      "Number of protocol messages that could not be sent, by type.",
		}, []string{"type"}),
		statesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "states_accepted_total",
			Help:      "Number of remote heartbeat states accepted.",
		}),
		statesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "states_rejected_total",
			Help:      "Number of remote heartbeat states ignored, by reason.",
		}, []string{"reason"}),
		discoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "discoveries_total",
			Help:      "Number of endpoints registered.",
		}),
		convictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "convictions_total",
			Help:      "Number of endpoints declared dead by the failure detector.",
		}),
		forgotten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "forgotten_total",
			Help:      "Number of endpoints removed after staying unreachable for too long.",
		}),
		members: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "members",
			Help:      "Number of addresses in the system view, by status.",
		}, []string{"status"}),
		phi: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "phi",
			Help:      "Suspicion level of live endpoints observed during status checks.",
			Buckets:   []float64{0.5, 1, 2, 4, 5, 6, 8, 10, 12, 16},
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.rounds,
			m.messagesSent,
			m.messagesReceived,
			m.sendFailures,
			m.statesAccepted,
			m.statesRejected,
			m.discoveries,
			m.convictions,
			m.forgotten,
			m.members,
			m.phi,
		)
	}

	return m
}

func (m *Metrics) observeSend(t MessageType, err error) {
	if err != nil {
		m.sendFailures.WithLabelValues(t.String()).Inc()
		return
	}

	m.messagesSent.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) observeView(v *View) {
	m.members.WithLabelValues(string(StatusLive)).Set(float64(v.LiveCount()))
	m.members.WithLabelValues(string(StatusUnreachable)).Set(float64(v.UnreachableCount()))
	m.members.WithLabelValues(string(StatusQuarantined)).Set(float64(v.QuarantinedCount()))
}
