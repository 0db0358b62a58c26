package target

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// HTTPOptions tune the adapter's client.
type HTTPOptions struct {
	CallTimeout time.Duration // per-call timeout, 0 = 10s
	Insecure    bool          // skip TLS verification
}

type invokeFunc func(ctx context.Context, payload any, metadata map[string]string) error

// HTTPTarget drives unary calls over HTTP: one POST per invocation, JSON
// payload, metadata as headers. Method selectors resolve through a route
// table fixed at construction; lookup is exact, never fuzzy.
type HTTPTarget struct {
	client *http.Client
	calls  map[string]invokeFunc
}

// NewHTTP connects a target for baseURL. routes maps each method selector
// to its path; the invocation closures are built once, here.
func NewHTTP(baseURL string, routes map[string]string, opts HTTPOptions) (*HTTPTarget, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported target scheme %q", u.Scheme)
	}
	if len(routes) == 0 {
		return nil, errors.New("no method routes configured")
	}

	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000
	if opts.Insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	tgt := &HTTPTarget{
		client: &http.Client{
			Timeout:   timeout,
			Transport: t,
		},
		calls: make(map[string]invokeFunc, len(routes)),
	}

	base := strings.TrimRight(baseURL, "/")
	for method, path := range routes {
		callURL := base + "/" + strings.TrimLeft(path, "/")
		tgt.calls[method] = func(ctx context.Context, payload any, metadata map[string]string) error {
			return tgt.post(ctx, callURL, payload, metadata)
		}
	}

	return tgt, nil
}

// Methods lists the configured selectors, sorted.
func (t *HTTPTarget) Methods() []string {
	methods := make([]string, 0, len(t.calls))
	for m := range t.calls {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

func (t *HTTPTarget) Invoke(ctx context.Context, method string, payload any, metadata map[string]string) error {
	call, ok := t.calls[method]
	if !ok {
		return Errorf(Unimplemented, "unknown method %q", method)
	}
	return call(ctx, payload, metadata)
}

func (t *HTTPTarget) post(ctx context.Context, callURL string, payload any, metadata map[string]string) error {
	body, err := encodePayload(payload)
	if err != nil {
		return Errorf(InvalidArgument, "encode payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callURL, bytes.NewReader(body))
	if err != nil {
		return Errorf(Internal, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range metadata {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return transportError(err)
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &Error{
		Code:    codeFromHTTP(resp.StatusCode),
		Message: fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		return json.Marshal(p)
	}
}

func transportError(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: DeadlineExceeded, Message: err.Error()}
	case errors.Is(err, context.Canceled):
		return &Error{Code: Canceled, Message: err.Error()}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Code: DeadlineExceeded, Message: err.Error()}
	}
	return &Error{Code: Unavailable, Message: err.Error()}
}

// codeFromHTTP maps an HTTP response status to the canonical code space.
func codeFromHTTP(status int) Code {
	switch status {
	case http.StatusBadRequest:
		return InvalidArgument
	case http.StatusUnauthorized:
		return Unauthenticated
	case http.StatusForbidden:
		return PermissionDenied
	case http.StatusNotFound:
		return NotFound
	case http.StatusConflict:
		return Aborted
	case http.StatusRequestedRangeNotSatisfiable:
		return OutOfRange
	case http.StatusTooManyRequests:
		return ResourceExhausted
	case 499:
		return Canceled
	case http.StatusNotImplemented:
		return Unimplemented
	case http.StatusServiceUnavailable:
		return Unavailable
	case http.StatusGatewayTimeout:
		return DeadlineExceeded
	}
	if status >= 500 {
		return Internal
	}
	return Unknown
}
