package errors

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"strings"

	buildhttp "github.com/randalmurphal/buildtools/http"
)

// Kind is the broad class of a failure.
type Kind int

const (
	KindOther Kind = iota
	KindAuth
	KindPermission
	KindRateLimited
	KindTLS
	KindTimeout
	KindUnreachable
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindPermission:
		return "permission"
	case KindRateLimited:
		return "rate-limited"
	case KindTLS:
		return "tls"
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	default:
		return "other"
	}
}

// connection reports whether k means the API could not be reached.
func (k Kind) connection() bool {
	return k == KindTLS || k == KindTimeout || k == KindUnreachable
}

// textRules are tried in order against the lowercased error text when
// nothing typed matched. Timeouts precede "dial tcp" so an i/o timeout
// while dialing is reported as a timeout.
var textRules = []struct {
	kind    Kind
	needles []string
}{
	{KindAuth, []string{"unauthenticated", "unauthorized", "401"}},
	{KindPermission, []string{"permission denied", "forbidden", "403"}},
	{KindTLS, []string{"x509", "certificate", "tls"}},
	{KindTimeout, []string{"timeout", "deadline exceeded"}},
	{KindUnreachable, []string{"connection refused", "no such host", "network is unreachable", "dial tcp"}},
}

// Classify returns err's Kind. API errors are judged by status alone;
// other errors by their type, then their text.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}

	switch {
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, buildhttp.ErrUnauthorized):
		return KindAuth
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, buildhttp.ErrForbidden):
		return KindPermission
	case errors.Is(err, ErrRateLimited), errors.Is(err, buildhttp.ErrRateLimited):
		return KindRateLimited
	}
	var apiErr *buildhttp.APIError
	if errors.As(err, &apiErr) {
		return KindOther
	}

	if k, ok := classifyTyped(err); ok {
		return k
	}

	text := strings.ToLower(err.Error())
	for _, rule := range textRules {
		for _, needle := range rule.needles {
			if strings.Contains(text, needle) {
				return rule.kind
			}
		}
	}
	if errors.Is(err, ErrConnectionFailed) {
		return KindUnreachable
	}
	return KindOther
}

func classifyTyped(err error) (Kind, bool) {
	var (
		certErr      *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostErr      x509.HostnameError
		netErr       net.Error
		dnsErr       *net.DNSError
		opErr        *net.OpError
	)
	switch {
	case errors.As(err, &certErr), errors.As(err, &authorityErr), errors.As(err, &hostErr):
		return KindTLS, true
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout, true
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout, true
	case errors.As(err, &dnsErr), errors.As(err, &opErr):
		return KindUnreachable, true
	}
	return KindOther, false
}

// target names the host a failed request was sent to.
func target(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, perr := url.Parse(urlErr.URL); perr == nil && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return ""
}
