package auth

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"

	apperrors "github.com/alexjbarnes/ghost-sync/internal/errors"
	"github.com/alexjbarnes/ghost-sync/internal/ghost"
)

// ErrorType buckets a failed login for display.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeUserNetwork covers mistakes in the address: unknown host,
	// malformed URL, no blog at that URL.
	ErrorTypeUserNetwork
	// ErrorTypeSSL covers TLS handshake and certificate failures.
	ErrorTypeSSL
	// ErrorTypeConnection covers refused connections and timeouts.
	ErrorTypeConnection
	// ErrorTypeAPI covers HTTP errors that are not credential rejections.
	ErrorTypeAPI
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeUserNetwork:
		return "user network error"
	case ErrorTypeSSL:
		return "ssl error"
	case ErrorTypeConnection:
		return "connection error"
	case ErrorTypeAPI:
		return "api error"
	default:
		return "unknown error"
	}
}

// ClassifyError maps a login failure to an ErrorType. TLS problems are
// checked first since they also surface as url.Errors.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var (
		certErr     *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		authority   x509.UnknownAuthorityError
		hostname    x509.HostnameError
		certInvalid x509.CertificateInvalidError
	)

	if errors.As(err, &certErr) || errors.As(err, &recordErr) ||
		errors.As(err, &authority) || errors.As(err, &hostname) || errors.As(err, &certInvalid) {
		return ErrorTypeSSL
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return ErrorTypeUserNetwork
	}

	var netErr net.Error
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ErrorTypeConnection
	}

	if errors.Is(err, apperrors.ErrURLNotFound) {
		return ErrorTypeUserNetwork
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Op == "parse" || strings.Contains(urlErr.Err.Error(), "unsupported protocol scheme") {
			return ErrorTypeUserNetwork
		}

		return ErrorTypeConnection
	}

	var httpErr *ghost.HTTPError
	if errors.As(err, &httpErr) {
		return ErrorTypeAPI
	}

	return ErrorTypeUnknown
}
