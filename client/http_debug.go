package client

import (
	"net/http"
	"net/http/httputil"
	"os"

	"github.com/rs/zerolog/log"
)

// debugTransport logs every request and response at debug level.
//
// Request bodies are not dumped (they carry passwords on the token
// exchange) and the Authorization header is redacted. Response bodies are
// dumped in full.
//
// Enable with SERVICENOW_DEBUG=true or DEBUG=true.
type debugTransport struct{ base http.RoundTripper }

func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	redacted := req.Clone(req.Context())
	if redacted.Header.Get("Authorization") != "" {
		redacted.Header.Set("Authorization", "Bearer [REDACTED]")
	}
	if reqDump, err := httputil.DumpRequestOut(redacted, false); err == nil {
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Str("request_dump", string(reqDump)).Msg("HTTP request")
	}

	resp, err := dt.base.RoundTrip(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, err
	}

	if respDump, err := httputil.DumpResponse(resp, true); err == nil {
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status_code", resp.StatusCode).Str("response_dump", string(respDump)).Msg("HTTP response")
	}
	return resp, nil
}

func defaultTransport() http.RoundTripper {
	return http.DefaultTransport.(*http.Transport).Clone()
}

// debugLoggingRequested checks the environment for a debug switch.
func debugLoggingRequested() bool {
	return os.Getenv("SERVICENOW_DEBUG") == "true" || os.Getenv("DEBUG") == "true"
}
