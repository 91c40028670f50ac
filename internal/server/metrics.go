package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// Metrics holds Prometheus metric descriptors for the dungeon server.
type Metrics struct {
	sessions  SessionCounter
	startTime time.Time
	registry  *prometheus.Registry

	commandsTotal  *prometheus.CounterVec
	logins         prometheus.Counter
	movesTotal     prometheus.Counter
	sessionsActive prometheus.Gauge
	uptimeSeconds  prometheus.Gauge
	heapBytes      prometheus.Gauge
	goroutines     prometheus.Gauge
}

// NewMetrics creates and registers Prometheus metrics on a private registry.
//
// Precondition: sessions must be non-nil.
func NewMetrics(sessions SessionCounter, startTime time.Time) *Metrics {
	m := &Metrics{
		sessions:  sessions,
		startTime: startTime,
		registry:  prometheus.NewRegistry(),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dungeon_commands_total",
			Help: "Total commands processed since server start, by resolved action.",
		}, []string{"action"}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dungeon_logins_total",
			Help: "Total logins since server start.",
		}),
		movesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dungeon_moves_total",
			Help: "Total successful room transitions since server start.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dungeon_sessions_active",
			Help: "Number of live sessions in the store.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dungeon_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
		heapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dungeon_memory_heap_bytes",
			Help: "Go heap memory allocated in bytes.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dungeon_goroutines",
			Help: "Number of active goroutines.",
		}),
	}

	m.registry.MustRegister(
		m.commandsTotal,
		m.logins,
		m.movesTotal,
		m.sessionsActive,
		m.uptimeSeconds,
		m.heapBytes,
		m.goroutines,
	)

	return m
}

// CommandProcessed records one executed command by action name.
func (m *Metrics) CommandProcessed(action string) {
	m.commandsTotal.WithLabelValues(action).Inc()
}

// LoginProcessed records one successful login.
func (m *Metrics) LoginProcessed() {
	m.logins.Inc()
}

// MoveProcessed records one successful room transition.
func (m *Metrics) MoveProcessed() {
	m.movesTotal.Inc()
}

// Update refreshes all gauge metrics from current server state.
func (m *Metrics) Update() {
	m.sessionsActive.Set(float64(m.sessions.Len()))
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.heapBytes.Set(float64(mem.HeapAlloc))
	m.goroutines.Set(float64(runtime.NumGoroutine()))
}

// Handler returns an http.Handler that updates gauges before serving them.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
