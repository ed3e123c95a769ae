// Package rqlitezero adapts rqlitec.Logger onto rs/zerolog, for
// deployments that already standardize their structured logging on it.
package rqlitezero

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rqlitec/rqlitec"
)

// Logger implements rqlitec.Logger by emitting one structured zerolog
// event per dispatch lifecycle callback.
type Logger struct {
	log     zerolog.Logger
	verbose bool
}

var _ rqlitec.Logger = (*Logger)(nil)

// New wraps an existing zerolog.Logger. verbose controls whether the
// high-volume per-attempt events are emitted at all; they're logged at
// debug level when they are.
func New(log zerolog.Logger, verbose bool) *Logger {
	return &Logger{log: log, verbose: verbose}
}

func (l *Logger) OnReadStart(host, path string) {
	if !l.verbose {
		return
	}
	l.log.Debug().Str("host", host).Str("path", path).Msg("rqlitec read start")
}

func (l *Logger) OnReadResponse(host string, attempts int, elapsed time.Duration) {
	if !l.verbose {
		return
	}
	l.log.Debug().Str("host", host).Int("attempts", attempts).Dur("elapsed", elapsed).Msg("rqlitec read response")
}

func (l *Logger) OnReadStale(host string) {
	l.log.Info().Str("host", host).Msg("rqlitec stale read, retrying")
}

func (l *Logger) OnWriteStart(host, path string) {
	if !l.verbose {
		return
	}
	l.log.Debug().Str("host", host).Str("path", path).Msg("rqlitec write start")
}

func (l *Logger) OnWriteResponse(host string, attempts int, elapsed time.Duration) {
	if !l.verbose {
		return
	}
	l.log.Debug().Str("host", host).Int("attempts", attempts).Dur("elapsed", elapsed).Msg("rqlitec write response")
}

func (l *Logger) OnFollowRedirect(from, to string) {
	l.log.Info().Str("from", from).Str("to", to).Msg("rqlitec redirect")
}

func (l *Logger) OnFetchError(host string, err error) {
	if !l.verbose {
		return
	}
	l.log.Debug().Str("host", host).Err(err).Msg("rqlitec fetch error")
}

func (l *Logger) OnConnectTimeout(host string) {
	if !l.verbose {
		return
	}
	l.log.Debug().Str("host", host).Msg("rqlitec connect timeout")
}

func (l *Logger) OnReadTimeout(host string) {
	if !l.verbose {
		return
	}
	l.log.Debug().Str("host", host).Msg("rqlitec read timeout")
}

func (l *Logger) OnHostsExhausted(hosts []string) {
	l.log.Warn().Strs("hosts", hosts).Msg("rqlitec hosts exhausted")
}

func (l *Logger) OnNonOkResponse(host string, status int) {
	if !l.verbose {
		return
	}
	l.log.Debug().Str("host", host).Int("status", status).Msg("rqlitec non-ok response")
}

func (l *Logger) OnBackupStart() {
	l.log.Info().Msg("rqlitec backup start")
}

func (l *Logger) OnBackupEnd(err error) {
	if err != nil {
		l.log.Error().Err(err).Msg("rqlitec backup end")
		return
	}
	l.log.Info().Msg("rqlitec backup end")
}

func (l *Logger) OnSlowQuery(host string, elapsed time.Duration) {
	l.log.Warn().Str("host", host).Dur("elapsed", elapsed).Msg("rqlitec slow query")
}
