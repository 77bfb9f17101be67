package fetch

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// postSocket writes an HTTP/1.1 POST by hand over a fresh TCP (or TLS)
// connection. It bypasses http.Transport entirely: no proxy settings, no
// connection pool and no HTTP/2.
func (f *Fetcher) postSocket(ctx context.Context, rawURL string, headers map[string]string, body []byte) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	port := u.Port()
	switch u.Scheme {
	case "http":
		if port == "" {
			port = "80"
		}
	case "https":
		if port == "" {
			port = "443"
		}
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	addr := net.JoinHostPort(u.Hostname(), port)

	ctx, cancel := context.WithTimeout(ctx, f.socketTimeout)
	defer cancel()

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	var conn net.Conn
	if u.Scheme == "https" {
		td := &tls.Dialer{
			NetDialer: dialer,
			Config:    &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12},
		}
		conn, err = td.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write(buildRequest(u, headers, body)); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

func buildRequest(u *url.URL, headers map[string]string, body []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "POST %s HTTP/1.1\r\n", u.RequestURI())

	fixed := map[string]string{
		"Host":           u.Host,
		"Content-Type":   "application/json",
		"Content-Length": strconv.Itoa(len(body)),
		"Connection":     "close",
		"User-Agent":     userAgent,
	}
	for k, v := range headers {
		canon := http.CanonicalHeaderKey(k)
		if canon == "Host" || canon == "Content-Length" || canon == "Connection" {
			continue
		}
		fixed[canon] = v
	}

	keys := make([]string, 0, len(fixed))
	for k := range fixed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, headerValue(fixed[k]))
	}
	b.WriteString("\r\n")
	b.Write(body)
	return b.Bytes()
}

// headerValue strips CR/LF so values cannot inject extra header lines.
func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}
