package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the collectors of one server in its own registry, so
// several servers can live in one process.
type metrics struct {
	registry *prometheus.Registry

	connections prometheus.Gauge
	registered  prometheus.Gauge
	operators   prometheus.Gauge
	channels    prometheus.Gauge

	accepted    prometheus.Counter
	received    prometheus.Counter
	dropped     prometheus.Counter
	commands    *prometheus.CounterVec
	disconnects *prometheus.CounterVec

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ircserv_connections",
			Help: "Open client connections",
		}),
		registered: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ircserv_registered_sessions",
			Help: "Sessions that completed registration",
		}),
		operators: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ircserv_operators",
			Help: "Sessions holding server operator status",
		}),
		channels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ircserv_channels",
			Help: "Channels currently formed",
		}),
		accepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircserv_connections_accepted_total",
			Help: "Client connections accepted",
		}),
		received: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircserv_received_bytes_total",
			Help: "Bytes read from clients",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircserv_dropped_lines_total",
			Help: "Outbound lines dropped because a client queue was full",
		}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ircserv_commands_total",
			Help: "Commands handled by verb",
		}, []string{"command"}),
		disconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ircserv_disconnects_total",
			Help: "Sessions torn down by reason",
		}, []string{"reason"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ircserv_admin_request_duration_seconds",
			Help:    "Admin API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ircserv_admin_requests_total",
			Help: "Admin API requests by status code",
		}, []string{"method", "path", "code"}),
	}
}

func (m *metrics) observe(c Counts) {
	m.connections.Set(float64(c.Connections))
	m.registered.Set(float64(c.Registered))
	m.operators.Set(float64(c.Operators))
	m.channels.Set(float64(c.Channels))
}

// countCommand is registered as a hook for every command.
func (m *metrics) countCommand(ev *CommandEvent) error {
	m.commands.WithLabelValues(ev.Message.Command).Inc()
	return nil
}

// middleware records latency and status codes of admin requests.
func (m *metrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			method := c.Request().Method
			m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Response().Status)).Inc()
			return nil
		}
	}
}
