// Package rqlitecprom adapts rqlitec.Logger onto prometheus/client_golang,
// turning dispatch lifecycle events into counters a /metrics endpoint can
// expose directly.
package rqlitecprom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rqlitec/rqlitec"
)

// Logger implements rqlitec.Logger by incrementing Prometheus counters; it
// never logs text anywhere, so pair it with another Logger (via a small
// multi-logger, if both are wanted) rather than using it as a drop-in
// replacement for StdLogger.
type Logger struct {
	reads          *prometheus.CounterVec
	writes         *prometheus.CounterVec
	staleReads     *prometheus.CounterVec
	redirects      prometheus.Counter
	failures       *prometheus.CounterVec
	hostsExhausted prometheus.Counter
	backups        *prometheus.CounterVec
	slowQueries    *prometheus.CounterVec
}

var _ rqlitec.Logger = (*Logger)(nil)

// New registers its metrics with reg and returns a ready Logger. Register
// with a dedicated *prometheus.Registry (rather than the global default)
// when embedding this in a library that may be imported more than once per
// process.
func New(reg prometheus.Registerer) *Logger {
	l := &Logger{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rqlitec_reads_total",
			Help: "Number of reads that completed successfully, labeled by host.",
		}, []string{"host"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rqlitec_writes_total",
			Help: "Number of writes that completed successfully, labeled by host.",
		}, []string{"host"}),
		staleReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rqlitec_stale_reads_total",
			Help: "Number of None-consistency reads reported stale, labeled by host.",
		}, []string{"host"}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rqlitec_redirects_total",
			Help: "Number of redirects followed.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rqlitec_failures_total",
			Help: "Number of failed single-host attempts, labeled by host and kind.",
		}, []string{"host", "kind"}),
		hostsExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rqlitec_hosts_exhausted_total",
			Help: "Number of queries that exhausted every host.",
		}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rqlitec_backups_total",
			Help: "Number of completed backup transfers, labeled by outcome.",
		}, []string{"outcome"}),
		slowQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rqlitec_slow_queries_total",
			Help: "Number of requests whose header-arrival time exceeded SlowQueryThreshold, labeled by host.",
		}, []string{"host"}),
	}
	reg.MustRegister(l.reads, l.writes, l.staleReads, l.redirects, l.failures, l.hostsExhausted, l.backups, l.slowQueries)
	return l
}

func (l *Logger) OnReadStart(host, path string)  {}
func (l *Logger) OnWriteStart(host, path string) {}
func (l *Logger) OnBackupStart()                 {}

func (l *Logger) OnReadResponse(host string, attempts int, elapsed time.Duration) {
	l.reads.WithLabelValues(host).Inc()
}

func (l *Logger) OnWriteResponse(host string, attempts int, elapsed time.Duration) {
	l.writes.WithLabelValues(host).Inc()
}

func (l *Logger) OnReadStale(host string) {
	l.staleReads.WithLabelValues(host).Inc()
}

func (l *Logger) OnFollowRedirect(from, to string) {
	l.redirects.Inc()
}

func (l *Logger) OnFetchError(host string, err error) {
	l.failures.WithLabelValues(host, "fetch_error").Inc()
}

func (l *Logger) OnConnectTimeout(host string) {
	l.failures.WithLabelValues(host, "connect_timeout").Inc()
}

func (l *Logger) OnReadTimeout(host string) {
	l.failures.WithLabelValues(host, "read_timeout").Inc()
}

func (l *Logger) OnNonOkResponse(host string, status int) {
	l.failures.WithLabelValues(host, "non_ok_response").Inc()
}

func (l *Logger) OnHostsExhausted(hosts []string) {
	l.hostsExhausted.Inc()
}

func (l *Logger) OnBackupEnd(err error) {
	if err != nil {
		l.backups.WithLabelValues("failure").Inc()
		return
	}
	l.backups.WithLabelValues("success").Inc()
}

func (l *Logger) OnSlowQuery(host string, elapsed time.Duration) {
	l.slowQueries.WithLabelValues(host).Inc()
}
