package rqlitec

import (
	"log"
	"os"
	"time"
)

// Logger receives the fixed set of dispatch lifecycle events a Connection
// invokes by name: which hooks fire and when is not up to an
// implementation — only whether a given hook is enabled, filtered, or
// rate-limited is. StdLogger makes that decision with its verbose flag;
// the zerolog and Prometheus adapters make it their own ways.
// Implementations must be safe for concurrent use; a Connection may
// dispatch many queries at once.
type Logger interface {
	// OnReadStart fires before each single-host read attempt.
	OnReadStart(host, path string)
	// OnReadResponse fires once a read completes successfully.
	OnReadResponse(host string, attempts int, elapsed time.Duration)
	// OnReadStale fires when a None-consistency read comes back flagged as
	// stale and is about to be retried once.
	OnReadStale(host string)
	// OnWriteStart fires before each single-host write attempt.
	OnWriteStart(host, path string)
	// OnWriteResponse fires once a write completes successfully.
	OnWriteResponse(host string, attempts int, elapsed time.Duration)
	// OnFollowRedirect fires when a 3xx response is actually followed to
	// target; it does not fire when the redirect budget is already spent.
	OnFollowRedirect(from, to string)
	// OnFetchError fires on a transport-level error that isn't itself
	// classified as a connect or response timeout.
	OnFetchError(host string, err error)
	// OnConnectTimeout fires when a host doesn't deliver response headers
	// within the connect timeout.
	OnConnectTimeout(host string)
	// OnReadTimeout fires when a host's response body isn't fully read
	// within the response timeout armed after its headers arrived.
	OnReadTimeout(host string)
	// OnHostsExhausted fires once a query's selector gives up on every
	// host without a successful response.
	OnHostsExhausted(hosts []string)
	// OnNonOkResponse fires on a non-2xx/3xx status, or a 3xx with no
	// usable Location header.
	OnNonOkResponse(host string, status int)
	// OnBackupStart fires once, before a Backup transfer begins.
	OnBackupStart()
	// OnBackupEnd fires once a Backup transfer completes; err is nil on
	// success.
	OnBackupEnd(err error)
	// OnSlowQuery fires when the wall time from a request's start to its
	// response headers arriving exceeds ConnectionOptions.SlowQueryThreshold.
	// Never called when that threshold is zero (the default).
	OnSlowQuery(host string, elapsed time.Duration)
}

// StdLogger is the default Logger, modeled on this package's own debug
// logging convention: a single prefixed line per event through the
// standard library's log package. Verbose controls whether the high-volume
// per-attempt events (OnReadStart, OnWriteStart, OnReadResponse,
// OnWriteResponse, and the failure-classification hooks) are emitted;
// OnReadStale, OnFollowRedirect, OnHostsExhausted, OnBackupStart,
// OnBackupEnd, and OnSlowQuery always are.
type StdLogger struct {
	verbose bool
	maxMsg  int
	l       *log.Logger
}

// NewStdLogger builds a StdLogger writing to os.Stderr. verbose enables
// the per-attempt lines; leave it false in production to avoid a log line
// per HTTP request. Error texts carried in events are capped at 256 bytes;
// SetMaxMessageLen adjusts that.
func NewStdLogger(verbose bool) *StdLogger {
	return &StdLogger{
		verbose: verbose,
		maxMsg:  256,
		l:       log.New(os.Stderr, "[rqlitec] ", log.LstdFlags),
	}
}

// SetMaxMessageLen caps how much of an error's text a single log line may
// carry; n <= 0 removes the cap.
func (s *StdLogger) SetMaxMessageLen(n int) { s.maxMsg = n }

func (s *StdLogger) errText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if s.maxMsg > 0 && len(msg) > s.maxMsg {
		msg = msg[:s.maxMsg] + "..."
	}
	return msg
}

func (s *StdLogger) OnReadStart(host, path string) {
	if s.verbose {
		s.l.Printf("read start host=%s %s", host, path)
	}
}

func (s *StdLogger) OnReadResponse(host string, attempts int, elapsed time.Duration) {
	if s.verbose {
		s.l.Printf("read response host=%s attempts=%d elapsed=%s", host, attempts, elapsed)
	}
}

func (s *StdLogger) OnReadStale(host string) {
	s.l.Printf("stale read host=%s, retrying", host)
}

func (s *StdLogger) OnWriteStart(host, path string) {
	if s.verbose {
		s.l.Printf("write start host=%s %s", host, path)
	}
}

func (s *StdLogger) OnWriteResponse(host string, attempts int, elapsed time.Duration) {
	if s.verbose {
		s.l.Printf("write response host=%s attempts=%d elapsed=%s", host, attempts, elapsed)
	}
}

func (s *StdLogger) OnFollowRedirect(from, to string) {
	s.l.Printf("redirect %s -> %s", from, to)
}

func (s *StdLogger) OnFetchError(host string, err error) {
	if s.verbose {
		s.l.Printf("fetch error host=%s err=%s", host, s.errText(err))
	}
}

func (s *StdLogger) OnConnectTimeout(host string) {
	if s.verbose {
		s.l.Printf("connect timeout host=%s", host)
	}
}

func (s *StdLogger) OnReadTimeout(host string) {
	if s.verbose {
		s.l.Printf("read timeout host=%s", host)
	}
}

func (s *StdLogger) OnHostsExhausted(hosts []string) {
	s.l.Printf("hosts exhausted: %v", hosts)
}

func (s *StdLogger) OnNonOkResponse(host string, status int) {
	if s.verbose {
		s.l.Printf("non-ok response host=%s status=%d", host, status)
	}
}

func (s *StdLogger) OnBackupStart() {
	s.l.Printf("backup start")
}

func (s *StdLogger) OnBackupEnd(err error) {
	if err != nil {
		s.l.Printf("backup end err=%s", s.errText(err))
		return
	}
	s.l.Printf("backup end")
}

func (s *StdLogger) OnSlowQuery(host string, elapsed time.Duration) {
	s.l.Printf("slow query host=%s elapsed=%s", host, elapsed)
}

// noopLogger discards every event; NewConnection uses it whenever
// ConnectionOptions.Logger is nil.
type noopLogger struct{}

func (noopLogger) OnReadStart(string, string)                 {}
func (noopLogger) OnReadResponse(string, int, time.Duration)  {}
func (noopLogger) OnReadStale(string)                         {}
func (noopLogger) OnWriteStart(string, string)                {}
func (noopLogger) OnWriteResponse(string, int, time.Duration) {}
func (noopLogger) OnFollowRedirect(string, string)            {}
func (noopLogger) OnFetchError(string, error)                 {}
func (noopLogger) OnConnectTimeout(string)                    {}
func (noopLogger) OnReadTimeout(string)                       {}
func (noopLogger) OnHostsExhausted([]string)                  {}
func (noopLogger) OnNonOkResponse(string, int)                {}
func (noopLogger) OnBackupStart()                             {}
func (noopLogger) OnBackupEnd(error)                          {}
func (noopLogger) OnSlowQuery(string, time.Duration)          {}
