package acquire

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"farmacias-turno/internal/components/assert"
	"farmacias-turno/internal/components/telemetry"
)

const (
	report_rendered_acquire = "rendered.acquire"
	report_rendered_release = "rendered.release"
)

// Rendered acquires the payload by letting a real browser load the upstream url,
// which gets it through javascript challenges a plain client cannot pass.
type Rendered struct {
	browser Browser
	timeout time.Duration
	tel     telemetry.API
}

// NewRendered creates a Rendered strategy, timeout defaults to DefaultTimeout.
func NewRendered(browser Browser, timeout time.Duration, tel telemetry.API) Rendered {
	assert.NotNil(browser)
	assert.NotNil(tel)

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return Rendered{
		browser: browser,
		timeout: timeout,
		tel:     telemetry.NewScopedAPI("rendered", tel),
	}
}

func (r Rendered) Acquire(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	session, err := r.browser.Launch(ctx)
	if err != nil {
		kind := KindLaunch
		if ctx.Err() != nil {
			kind = KindTimeout
		}
		r.tel.ReportBroken(report_rendered_acquire, err, kind.String())
		return nil, &Error{Kind: kind, Strategy: "rendered", Cause: err}
	}
	defer func() {
		err := session.Close()
		if err != nil {
			r.tel.ReportBroken(report_rendered_release, err)
		}
	}()

	text, err := session.Render(ctx, url)
	if err != nil {
		kind := classify(err)
		if ctx.Err() != nil {
			kind = KindTimeout
		}
		r.tel.ReportBroken(report_rendered_acquire, err, kind.String(), url)
		return nil, &Error{Kind: kind, Strategy: "rendered", Cause: err}
	}

	payload := []byte(strings.TrimSpace(text))
	if !json.Valid(payload) {
		excerpt := Excerpt(string(payload), ExcerptLength)
		r.tel.ReportWarning(report_rendered_acquire, "rendered page is not json", excerpt)
		return nil, &Error{
			Kind:     KindParse,
			Strategy: "rendered",
			Excerpt:  excerpt,
		}
	}

	return payload, nil
}
