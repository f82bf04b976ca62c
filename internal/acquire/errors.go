package acquire

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies why an acquisition failed.
type Kind int

const (
	KindTransport Kind = iota
	KindTimeout
	KindUpstreamStatus
	KindParse
	KindLaunch
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindUpstreamStatus:
		return "upstream_status"
	case KindParse:
		return "parse"
	case KindLaunch:
		return "launch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ExcerptLength is how much of an offending body is kept for diagnostics.
const ExcerptLength = 200

// Error is returned by every strategy in this package when the payload could not be acquired.
type Error struct {
	Kind     Kind
	Strategy string
	// Status is the upstream HTTP status, only set for KindUpstreamStatus.
	Status int
	// Excerpt is a truncated, single line prefix of the offending content.
	Excerpt string
	Cause   error

	// full body of a non-2xx response, kept for challenge detection
	body []byte
}

func (e *Error) Error() string {
	var out strings.Builder
	fmt.Fprintf(&out, "%s: %s", e.Strategy, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&out, " (%d)", e.Status)
	}
	if e.Cause != nil {
		fmt.Fprintf(&out, ": %s", e.Cause)
	}
	if e.Excerpt != "" {
		fmt.Fprintf(&out, ": %q", e.Excerpt)
	}
	return out.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Excerpt returns at most n runes of body with line breaks flattened to spaces.
func Excerpt(body string, n int) string {
	runes := []rune(body)
	if len(runes) > n {
		runes = runes[:n]
	}
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(string(runes))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func classify(err error) Kind {
	if isTimeout(err) {
		return KindTimeout
	}
	return KindTransport
}
