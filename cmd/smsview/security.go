package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// checkSameOrigin rejects browser requests sent from another site. A page on
// the internet must not be able to replace the conversation by posting to the
// local server. Requests without an Origin header (curl, scripts) pass.
func checkSameOrigin(r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return nil
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return fmt.Errorf("malformed Origin header: %q", origin)
	}
	if !strings.EqualFold(u.Host, r.Host) {
		return fmt.Errorf("origin %s does not match host %s", u.Host, r.Host)
	}
	return nil
}
