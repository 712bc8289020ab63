package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	presenceSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "presence_sessions",
		Help: "Currently connected presence sessions.",
	})

	admissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_admissions_total",
		Help: "Connection admission attempts by result.",
	}, []string{"result"})

	broadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "location_broadcasts_total",
		Help: "Location updates fanned out, by ingress path.",
	}, []string{"source"})

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "path", "status"})
)

// Register installs the collectors in the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			presenceSessions,
			admissionsTotal,
			broadcastsTotal,
			httpRequestsTotal,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func SessionOpened() { presenceSessions.Inc() }
func SessionClosed() { presenceSessions.Dec() }

func AdmissionResult(result string) {
	admissionsTotal.WithLabelValues(result).Inc()
}

func BroadcastSent(source string) {
	broadcastsTotal.WithLabelValues(source).Inc()
}

// HTTPMiddleware counts requests against the matched route, not the raw
// URI, to keep label cardinality bounded.
func HTTPMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			status := c.Response().Status
			if httpErr, ok := err.(*echo.HTTPError); ok {
				status = httpErr.Code
			}
			httpRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Inc()
			return err
		}
	}
}
