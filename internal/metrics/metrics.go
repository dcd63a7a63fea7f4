package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
	"github.com/nerrad567/melcloud-bridge/internal/session"
)

const namespace = "melbridge"

// Result label values.
const (
	resultOK    = "ok"
	resultError = "error"
)

// Metrics holds every bridge collector.
type Metrics struct {
	registry *prometheus.Registry

	sessionState  *prometheus.GaugeVec
	logins        *prometheus.CounterVec
	scans         *prometheus.CounterVec
	devices       *prometheus.GaugeVec
	polls         *prometheus.CounterVec
	stateChanges  *prometheus.CounterVec
	commands      *prometheus.CounterVec
	mirrorErrors  prometheus.Counter
	relayMessages *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Session state per account (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)",
		}, []string{"account"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result",
		}, []string{"account", "result"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Device list scans by result",
		}, []string{"account", "result"}),
		devices: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices",
			Help:      "Devices found by the last successful scan",
		}, []string{"account"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Device state polls by result",
		}, []string{"account", "result"}),
		stateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_changes_total",
			Help:      "Polls that returned a changed snapshot",
		}, []string{"account"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Device commands by source, family and result",
		}, []string{"source", "family", "result"}),
		mirrorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_mirror_errors_total",
			Help:      "Failed snapshot mirror writes",
		}),
		relayMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_messages_total",
			Help:      "Messages published to relays",
		}, []string{"relay"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionState,
		m.logins,
		m.scans,
		m.devices,
		m.polls,
		m.stateChanges,
		m.commands,
		m.mirrorErrors,
		m.relayMessages,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterGaugeFunc adds a gauge whose value is read at scrape time.
func (m *Metrics) RegisterGaugeFunc(name, help string, fn func() float64) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// ObserveSessionState records a session transition.
func (m *Metrics) ObserveSessionState(account string, s session.State) {
	m.sessionState.WithLabelValues(account).Set(float64(s))
}

// ObserveLogin records a login attempt.
func (m *Metrics) ObserveLogin(account string, err error) {
	m.logins.WithLabelValues(account, result(err)).Inc()
}

// ObserveScan records a device list scan.
func (m *Metrics) ObserveScan(account string, devices int, err error) {
	m.scans.WithLabelValues(account, result(err)).Inc()
	if err == nil {
		m.devices.WithLabelValues(account).Set(float64(devices))
	}
}

// ObservePoll records one device poll cycle.
func (m *Metrics) ObservePoll(account string, _ int, changed bool, err error) {
	m.polls.WithLabelValues(account, result(err)).Inc()
	if changed {
		m.stateChanges.WithLabelValues(account).Inc()
	}
}

// ObserveCommand records a delivered or failed command.
func (m *Metrics) ObserveCommand(source string, family melcloud.DeviceType, err error) {
	m.commands.WithLabelValues(source, family.Slug(), result(err)).Inc()
}

// ObserveMirrorError records a failed snapshot mirror write.
func (m *Metrics) ObserveMirrorError(string, error) {
	m.mirrorErrors.Inc()
}

// ObserveRelayMessage records a message published to a relay.
func (m *Metrics) ObserveRelayMessage(relay string) {
	m.relayMessages.WithLabelValues(relay).Inc()
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}
