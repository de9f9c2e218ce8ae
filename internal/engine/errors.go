package engine

import (
	"context"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrorKind is the engine's error taxonomy. It names kinds, not concrete
// Go error types, since the underlying transfer substrate is swappable.
type ErrorKind int

const (
	ErrSuccess ErrorKind = iota
	ErrIO
	ErrAuthorization
	ErrAuthentication
	ErrInvalidURL
	ErrTimeout
	ErrNetworkOverload
	ErrOffline
	ErrCancelled
	ErrUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case ErrSuccess:
		return "SUCCESS"
	case ErrIO:
		return "IO_ERROR"
	case ErrAuthorization:
		return "AUTHORIZATION_ERROR"
	case ErrAuthentication:
		return "AUTHENTICATION_ERROR"
	case ErrInvalidURL:
		return "INVALID_URL_ERROR"
	case ErrTimeout:
		return "TIMEOUT_ERROR"
	case ErrNetworkOverload:
		return "NETWORK_OVERLOAD_ERROR"
	case ErrOffline:
		return "OFFLINE_ERROR"
	case ErrCancelled:
		return "CANCELLED_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// offlineMessage is delivered to every handle still in-use when Teardown
// runs (spec.md §4.6, §8 scenario 6).
const offlineMessage = "Offline: network is deinitialized"

// classifyTransferError maps a low-level transfer error to the engine's
// error taxonomy, standing in for spec.md §7's libcurl-code table:
//
//	remote access denied / SSL cert / SSL cipher / login denied -> AUTHORIZATION
//	SSL CA cert                                                 -> AUTHENTICATION
//	unsupported protocol / URL malformed / could not resolve host -> INVALID_URL
//	operation timed out (also: partial body at/after transfer_timeout) -> TIMEOUT
//	request context cancelled                                   -> CANCELLED
//	everything else -> IO_ERROR
func classifyTransferError(err error, elapsed, transferTimeout time.Duration) (ErrorKind, string) {
	if err == nil {
		return ErrSuccess, "OK"
	}

	msg := err.Error()

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout, "Operation timed out"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout, "Operation timed out"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrInvalidURL, "Could not resolve host: " + dnsErr.Name
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if strings.Contains(urlErr.Err.Error(), "unsupported protocol scheme") {
			return ErrInvalidURL, "Unsupported protocol"
		}
		if errors.Is(urlErr.Err, context.Canceled) {
			return ErrCancelled, "Cancelled"
		}
	}
	if strings.Contains(msg, "missing protocol scheme") || strings.Contains(msg, "invalid URL") {
		return ErrInvalidURL, "URL using bad/illegal format"
	}

	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &unknownAuth) {
		return ErrAuthentication, "SSL certificate problem: unable to get local issuer certificate"
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return ErrAuthorization, "SSL certificate problem"
	}
	if strings.Contains(msg, "tls:") || strings.Contains(msg, "x509:") {
		return ErrAuthorization, "SSL connect error"
	}
	if strings.Contains(msg, "401") || strings.Contains(msg, "403") {
		return ErrAuthorization, "Access denied"
	}

	// "Partial file" at or after the configured transfer timeout reclassifies
	// as TIMEOUT_ERROR per spec.md §4.5 step 4.
	if errors.Is(err, io.EOF) || strings.Contains(msg, "unexpected EOF") || strings.Contains(msg, "connection reset") {
		if transferTimeout > 0 && elapsed >= transferTimeout {
			return ErrTimeout, "Operation timed out"
		}
		return ErrIO, "Transfer closed with outstanding read data remaining"
	}

	return ErrIO, msg
}

// normalizeStatus applies spec.md §4.5 step 4's success-path normalization:
// a fully-consumed single-ranged response (HTTP 206 with offset == 0) is
// reported as 200, and a serverless transfer reporting status 0 is also
// reported as 200.
func normalizeStatus(statusCode int, offset int64) (int, string) {
	status := statusCode
	if offset == 0 && status == http.StatusPartialContent {
		status = http.StatusOK
	}
	if status == 0 {
		status = http.StatusOK
	}
	reason := http.StatusText(status)
	if reason == "" {
		reason = "OK"
	}
	return status, reason
}
