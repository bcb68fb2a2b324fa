package multiplexer

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/adriangligor/octoplex/internal/api"
)

// materializedLeg is either a ready-to-send outbound request or the
// construction error that will surface as a RequestInvalid failure.
type materializedLeg struct {
	req *http.Request
	err error
}

// materializeBatch converts every leg descriptor into a materializedLeg.
// The result has exactly the same length and order as the input; a leg
// that fails construction never aborts its siblings.
func materializeBatch(legs []api.LegRequest) []materializedLeg {
	out := make([]materializedLeg, len(legs))
	for i, leg := range legs {
		out[i] = materializeLeg(leg)
	}
	return out
}

func materializeLeg(leg api.LegRequest) materializedLeg {
	method, err := api.NormalizeMethod(leg.Method)
	if err != nil {
		return materializedLeg{err: err}
	}

	u, err := url.Parse(leg.URI)
	if err != nil {
		return materializedLeg{err: fmt.Errorf("malformed uri %q: %w", leg.URI, err)}
	}
	if !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return materializedLeg{err: fmt.Errorf("uri %q must be absolute with scheme http or https", leg.URI)}
	}

	body := strings.NewReader("")
	if leg.Body != nil {
		body = strings.NewReader(*leg.Body)
	}

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return materializedLeg{err: err}
	}

	for name, value := range leg.Headers {
		if !httpguts.ValidHeaderFieldName(name) {
			return materializedLeg{err: fmt.Errorf("illegal header name %q", name)}
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return materializedLeg{err: fmt.Errorf("illegal value for header %q", name)}
		}
		req.Header.Set(name, value)
	}

	return materializedLeg{req: req}
}
