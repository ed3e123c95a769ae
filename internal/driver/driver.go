// Package driver performs one single-host HTTP attempt on behalf of the
// query layer: build the request, race it against two independent,
// sequential timeouts (one for establishing the connection and receiving
// headers, a fresh one for reading the body once headers are in), and
// classify what came back into success, redirect, or failure without ever
// following the redirect itself — that decision belongs to the node
// selector, not to net/http's own redirect machinery.
//
// The dual-timeout split and the LIFO teardown of per-request resources are
// carried over from the teacher's own request path, generalized from a
// single fixed RPC call to an arbitrary method/URL/body triple.
package driver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rqlitec/rqlitec/internal/rqliteerr"
)

// Outcome classifies what a single attempt produced.
type Outcome int

const (
	// Success means the server returned a 2xx response; Result.Body holds
	// the full response body.
	Success Outcome = iota
	// Redirect means the server returned a 3xx response with a Location
	// header; Result.RedirectLocation holds it, unparsed.
	Redirect
	// Failure means the attempt should be treated as a failed host:
	// connection refused, timed out, or a non-2xx/3xx status.
	Failure
)

// FailureKind refines a Failure outcome into the transport-level category
// that produced it, so a caller's logging can fire the right named hook
// (connectTimeout, readTimeout, fetchError, nonOkResponse) instead of one
// generic retry event.
type FailureKind int

const (
	// FailureFetchError is any transport-level error that isn't itself a
	// timeout: connection refused, connection reset, TLS failure, and so
	// on.
	FailureFetchError FailureKind = iota
	// FailureConnectTimeout means the host didn't deliver response headers
	// within the connect timeout (dial, TLS handshake, and the header wait
	// are all charged against it).
	FailureConnectTimeout
	// FailureReadTimeout means headers arrived but the body wasn't fully
	// read within the response timeout, armed fresh once headers arrived.
	FailureReadTimeout
	// FailureNonOKResponse means the server answered with a status outside
	// 2xx/3xx, or a 3xx with no usable Location header.
	FailureNonOKResponse
)

// Result is what a single Do call produces. Exactly one of Body (on
// Success) or RedirectLocation (on Redirect) is populated.
type Result struct {
	Outcome          Outcome
	StatusCode       int
	Body             []byte
	RedirectLocation string

	// FailureKind is only meaningful when Outcome is Failure.
	FailureKind FailureKind
	// Err is the underlying transport or body-read error, if any, for
	// FailureFetchError, FailureConnectTimeout and FailureReadTimeout.
	Err error

	// HeaderArrival is when response headers were received (Success and
	// Redirect only, zero otherwise); callers use it to measure "request
	// start to header arrival" for slow-query reporting.
	HeaderArrival time.Time
}

// Close releases idle keep-alive connections held by the Driver's
// transport. It does not need to be called before dropping a Driver in
// normal use; it exists so short-lived callers (tests, a CLI invocation)
// can shut down promptly instead of waiting out the keep-alive timeout.
func (d *Driver) Close() {
	d.client.CloseIdleConnections()
}

// Driver issues single-host HTTP requests with independent connect and
// response timeouts. A Driver is safe for concurrent use and is normally
// shared across every attempt a Connection makes, the way a single
// *http.Client is meant to be reused across requests.
type Driver struct {
	client          *http.Client
	responseTimeout time.Duration
}

// New builds a Driver. connectTimeout bounds "fetch start -> OK headers
// received": dialing the TCP connection, the TLS handshake, and waiting
// for response headers are all charged against it, matching the single
// timer the dispatch algorithm arms for that phase. responseTimeout is a
// separate budget, armed only once headers have arrived, bounding "OK
// headers -> body fully read" — it never shares whatever time the connect
// phase happened to have left over, and a host that stalls before sending
// headers is never charged against it.
func New(connectTimeout, responseTimeout time.Duration) *Driver {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: connectTimeout,
	}
	return &Driver{
		client: &http.Client{
			Transport: transport,
			// No overall Client.Timeout here: the connect phase and the
			// read phase are budgeted independently below instead of
			// sharing one deadline across both.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		responseTimeout: responseTimeout,
	}
}

// Do issues one HTTP request against a single host and classifies the
// result. body may be nil. Every resource registered on this call's
// cleanup stack (the response body) is released in the reverse order it
// was acquired, regardless of which branch returns.
func (d *Driver) Do(ctx context.Context, method, url string, body []byte, headers http.Header) (*Result, error) {
	var cleanup cleanupStack
	defer cleanup.run()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, &rqliteerr.ProtocolErr{Message: "building request: " + err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &rqliteerr.Canceled{Cause: ctx.Err()}
		}
		kind := FailureFetchError
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = FailureConnectTimeout
		}
		return &Result{Outcome: Failure, FailureKind: kind, Err: err}, nil
	}
	cleanup.push(func() { resp.Body.Close() })
	headerArrival := time.Now()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return &Result{Outcome: Failure, StatusCode: resp.StatusCode, FailureKind: FailureNonOKResponse, HeaderArrival: headerArrival}, nil
		}
		return &Result{Outcome: Redirect, StatusCode: resp.StatusCode, RedirectLocation: loc, HeaderArrival: headerArrival}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var buf bytes.Buffer
		err := copyBodyWithTimeout(ctx, &buf, resp.Body, d.responseTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &rqliteerr.Canceled{Cause: ctx.Err()}
			}
			kind := FailureFetchError
			if errors.Is(err, errReadTimeout) {
				kind = FailureReadTimeout
			}
			return &Result{Outcome: Failure, StatusCode: resp.StatusCode, FailureKind: kind, Err: err, HeaderArrival: headerArrival}, nil
		}
		return &Result{Outcome: Success, StatusCode: resp.StatusCode, Body: buf.Bytes(), HeaderArrival: headerArrival}, nil

	default:
		return &Result{Outcome: Failure, StatusCode: resp.StatusCode, FailureKind: FailureNonOKResponse, HeaderArrival: headerArrival}, nil
	}
}

// DoStream issues one HTTP request and, on a 2xx response, streams the body
// straight into w in fixed-size chunks instead of materializing it —
// Result.Body is always nil here. Everything else (redirect and failure
// classification, the dual timeouts, the LIFO teardown) behaves exactly as
// in Do. The caller owns w and can tell how much of the stream arrived
// before a mid-transfer failure by wrapping it in a counting writer.
func (d *Driver) DoStream(ctx context.Context, method, url string, headers http.Header, w io.Writer) (*Result, error) {
	var cleanup cleanupStack
	defer cleanup.run()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, &rqliteerr.ProtocolErr{Message: "building request: " + err.Error()}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &rqliteerr.Canceled{Cause: ctx.Err()}
		}
		kind := FailureFetchError
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = FailureConnectTimeout
		}
		return &Result{Outcome: Failure, FailureKind: kind, Err: err}, nil
	}
	cleanup.push(func() { resp.Body.Close() })
	headerArrival := time.Now()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return &Result{Outcome: Failure, StatusCode: resp.StatusCode, FailureKind: FailureNonOKResponse, HeaderArrival: headerArrival}, nil
		}
		return &Result{Outcome: Redirect, StatusCode: resp.StatusCode, RedirectLocation: loc, HeaderArrival: headerArrival}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := copyBodyWithTimeout(ctx, w, resp.Body, d.responseTimeout); err != nil {
			if ctx.Err() != nil {
				return nil, &rqliteerr.Canceled{Cause: ctx.Err()}
			}
			kind := FailureFetchError
			if errors.Is(err, errReadTimeout) {
				kind = FailureReadTimeout
			}
			return &Result{Outcome: Failure, StatusCode: resp.StatusCode, FailureKind: kind, Err: err, HeaderArrival: headerArrival}, nil
		}
		return &Result{Outcome: Success, StatusCode: resp.StatusCode, HeaderArrival: headerArrival}, nil

	default:
		return &Result{Outcome: Failure, StatusCode: resp.StatusCode, FailureKind: FailureNonOKResponse, HeaderArrival: headerArrival}, nil
	}
}

// errReadTimeout marks a copyBodyWithTimeout failure as the response
// timeout firing, as opposed to some other read error (a reset
// connection, a truncated body), so Do can classify it precisely.
var errReadTimeout = errors.New("driver: response timeout reading body")

// bodyChunkSize is the buffer each body copy streams through; a response
// larger than this (a backup snapshot, a big result set) reaches dst one
// chunk at a time instead of all at once.
const bodyChunkSize = 16 * 1024

// copyBodyWithTimeout copies body into dst against a fresh budget of
// timeout. It races the copy against that timeout and ctx in a goroutine so
// a server that sent headers but never finishes the body is caught without
// blocking on a read that may never return; closing body unblocks the
// copy on whichever branch wins.
func copyBodyWithTimeout(ctx context.Context, dst io.Writer, body io.ReadCloser, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		buf := make([]byte, bodyChunkSize)
		_, err := io.CopyBuffer(dst, body, buf)
		done <- err
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		body.Close()
		<-done
		return ctx.Err()
	case <-timer.C:
		body.Close()
		<-done
		return errReadTimeout
	}
}

// cleanupStack runs registered funcs in LIFO order, mirroring the teardown
// discipline of the teacher's request path: the last resource acquired is
// the first one released.
type cleanupStack struct {
	fns []func()
}

func (c *cleanupStack) push(fn func()) {
	c.fns = append(c.fns, fn)
}

func (c *cleanupStack) run() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
}
