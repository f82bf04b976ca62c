package acquire

import (
	"context"
	"time"

	"farmacias-turno/internal/components/assert"
	"farmacias-turno/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const (
	report_direct_acquire = "direct.acquire"
)

// DefaultTimeout bounds a single acquisition, whatever the strategy.
const DefaultTimeout = 15 * time.Second

// DefaultUserAgent is the desktop browser identity presented to the upstream.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// BrowserHeaders is the header set of a top-level navigation in a desktop browser.
// Only gzip is advertised since that is the only encoding resty decodes.
var BrowserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
	"Accept-Language":           "es-CL,es;q=0.9,en-US;q=0.8,en;q=0.7",
	"Accept-Encoding":           "gzip",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Pragma":                    "no-cache",
	"Cache-Control":             "no-cache",
}

type DirectOptions struct {
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
}

// Direct acquires the payload with a single plain HTTP GET.
type Direct struct {
	http *resty.Client
	tel  telemetry.API
}

func NewDirect(opts DirectOptions, tel telemetry.API) Direct {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("direct", tel)

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	httpClient := resty.New()
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	httpClient.SetHeaders(BrowserHeaders)
	httpClient.SetHeader("User-Agent", opts.UserAgent)
	httpClient.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(httpClient, tel)

	return Direct{
		http: httpClient,
		tel:  tel,
	}
}

func (d Direct) Acquire(ctx context.Context, url string) ([]byte, error) {
	res, err := d.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		kind := classify(err)
		d.tel.ReportBroken(report_direct_acquire, err, kind.String(), url)
		return nil, &Error{
			Kind:     kind,
			Strategy: "direct",
			Cause:    err,
		}
	}

	if res.IsError() || res.StatusCode() < 200 || res.StatusCode() >= 300 {
		body := res.Body()
		d.tel.ReportWarning(report_direct_acquire, res.Status(), url)
		return nil, &Error{
			Kind:     KindUpstreamStatus,
			Strategy: "direct",
			Status:   res.StatusCode(),
			Excerpt:  Excerpt(string(body), ExcerptLength),
			body:     body,
		}
	}

	return res.Body(), nil
}
