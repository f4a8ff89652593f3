package llm

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/renami-app/renami/internal/domain"
)

// translateError maps any client error onto the suggestion error taxonomy.
// It is applied once, where the service calls the provider.
func translateError(err error) *domain.SuggestionError {
	if err == nil {
		return nil
	}
	var se *domain.SuggestionError
	if errors.As(err, &se) {
		return se
	}
	detail := abbreviate(err.Error(), 300)

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewSuggestionError(domain.KindTimeout, detail)
	}
	if errors.Is(err, context.Canceled) {
		return domain.NewSuggestionError(domain.KindUnexpected, "request cancelled")
	}

	if code, ok := httpStatus(err); ok {
		if kind, ok := kindForStatus(code); ok {
			return domain.NewSuggestionError(kind, detail)
		}
		if mentionsMissingModel(detail) {
			return domain.NewSuggestionError(domain.KindModelOrEndpointNotFound, detail)
		}
		return domain.NewSuggestionError(domain.KindUnexpected, detail)
	}

	if st, ok := status.FromError(err); ok {
		if kind, ok := kindForCode(st.Code()); ok {
			return domain.NewSuggestionError(kind, abbreviate(st.Message(), 300))
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewSuggestionError(domain.KindTimeout, detail)
	}
	if isConnectionError(err) {
		return domain.NewSuggestionError(domain.KindConnectionError, detail)
	}
	if mentionsMissingModel(detail) {
		return domain.NewSuggestionError(domain.KindModelOrEndpointNotFound, detail)
	}
	return domain.NewSuggestionError(domain.KindUnexpected, detail)
}

// httpStatus extracts the HTTP status from the client libraries' error types.
func httpStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code != 0 {
		return gErr.Code, true
	}
	var stErr *StatusError
	if errors.As(err, &stErr) && stErr.Code != 0 {
		return stErr.Code, true
	}
	return 0, false
}

func kindForStatus(code int) (domain.ErrorKind, bool) {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.KindInvalidCredentials, true
	case http.StatusNotFound:
		return domain.KindModelOrEndpointNotFound, true
	case http.StatusTooManyRequests:
		return domain.KindRateLimited, true
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return domain.KindTimeout, true
	}
	return domain.KindUnexpected, false
}

func kindForCode(code codes.Code) (domain.ErrorKind, bool) {
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		return domain.KindInvalidCredentials, true
	case codes.NotFound:
		return domain.KindModelOrEndpointNotFound, true
	case codes.ResourceExhausted:
		return domain.KindRateLimited, true
	case codes.DeadlineExceeded:
		return domain.KindTimeout, true
	case codes.Unavailable:
		return domain.KindConnectionError, true
	}
	return domain.KindUnexpected, false
}

func isConnectionError(err error) bool {
	var (
		urlErr   *url.Error
		opErr    *net.OpError
		dnsErr   *net.DNSError
		certErr  *tls.CertificateVerificationError
		recErr   tls.RecordHeaderError
		authErr  x509.UnknownAuthorityError
		hostErr  x509.HostnameError
		invalErr x509.CertificateInvalidError
	)
	return errors.As(err, &urlErr) ||
		errors.As(err, &opErr) ||
		errors.As(err, &dnsErr) ||
		errors.As(err, &certErr) ||
		errors.As(err, &recErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalErr)
}

// mentionsMissingModel catches providers that answer 400 for an unknown model.
func mentionsMissingModel(msg string) bool {
	m := strings.ToLower(msg)
	if !strings.Contains(m, "model") {
		return false
	}
	return strings.Contains(m, "not exist") ||
		strings.Contains(m, "not found") ||
		strings.Contains(m, "does not exist") ||
		strings.Contains(m, "unknown model")
}
