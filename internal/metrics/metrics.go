package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	wafRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_waf_requests_total",
		Help: "Total number of requests inspected by the WAF",
	})
	wafBlockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_waf_blocked_total",
		Help: "Total number of requests denied by the WAF",
	})
	wafMonitoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_waf_monitored_total",
		Help: "Total number of detections that were logged but not denied",
	})
	wafAutoBlockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_waf_autoblocked_total",
		Help: "Total number of addresses auto-added to the blacklist",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(wafRequestsTotal, wafBlockedTotal, wafMonitoredTotal, wafAutoBlockedTotal)
}

// IncWAFRequest increments the inspected requests counter.
func IncWAFRequest() { wafRequestsTotal.Inc() }

// IncWAFBlocked increments the denied requests counter.
func IncWAFBlocked() { wafBlockedTotal.Inc() }

// IncWAFMonitored increments the log-only detections counter.
func IncWAFMonitored() { wafMonitoredTotal.Inc() }

// IncWAFAutoBlocked increments the auto-blacklist counter.
func IncWAFAutoBlocked() { wafAutoBlockedTotal.Inc() }
