package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "monitor_ticks_total", Help: "Ticks handled by the session loop"},
		[]string{"schedule"},
	)
	TicksSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "monitor_ticks_skipped_total", Help: "Ticks coalesced because the previous handler was still running"},
		[]string{"schedule"},
	)
	AnnouncementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "monitor_announcements_total", Help: "Announced metric changes"},
		[]string{"metric", "type"},
	)
	SampleErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "monitor_sample_errors_total", Help: "Failed metric fetches"},
		[]string{"metric"},
	)
	SessionRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "monitor_session_restarts_total", Help: "Sessions restarted after a failure"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, TicksSkipped, AnnouncementsTotal, SampleErrorsTotal, SessionRestarts)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
