package commands

import (
	"fmt"
	"time"

	"farmacias-turno/internal/acquire"
	"farmacias-turno/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const (
	probePreviewLength = 300

	// DefaultProbeOrigin is the site the public frontend is served from.
	DefaultProbeOrigin = "https://farmacia-turno.netlify.app"
)

var probeOrigin string

func init() {
	probeCmd.Flags().StringVar(&probeOrigin, "origin", DefaultProbeOrigin, "The Origin header sent to the upstream.")
	rootCmd.AddCommand(probeCmd)
}

// ProbeResult describes how the upstream answered a cross origin request.
type ProbeResult struct {
	Status      int
	AllowOrigin string
	ContentType string
	Challenge   bool
	Elapsed     time.Duration
	Preview     string
}

// Probe sends one cross origin GET to url. Non-2xx statuses are part of the result,
// only transport failures are errors.
func Probe(cmd *cobra.Command, url, origin string, timeout time.Duration) (ProbeResult, error) {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", acquire.DefaultUserAgent)
	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("probe", telemetry.SlogAPI{}))

	start := time.Now()
	res, err := client.R().
		SetContext(cmd.Context()).
		SetHeader("Origin", origin).
		Get(url)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe %s: %w", url, err)
	}

	return ProbeResult{
		Status:      res.StatusCode(),
		AllowOrigin: res.Header().Get("Access-Control-Allow-Origin"),
		ContentType: res.Header().Get("Content-Type"),
		Challenge:   acquire.DetectChallenge(res.Body()),
		Elapsed:     time.Since(start),
		Preview:     acquire.Excerpt(string(res.Body()), probePreviewLength),
	}, nil
}

var probeCmd = &cobra.Command{
	Use:   "probe [--origin <origin>]",
	Short: "Sends a single cross origin request to the upstream and reports how it answered.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		result, err := Probe(cmd, cfg.Upstream.Url, probeOrigin, cfg.Timeout())
		if err != nil {
			return err
		}

		allowOrigin := result.AllowOrigin
		if allowOrigin == "" {
			allowOrigin = "(missing)"
		}

		t := newTable(cmd)
		t.AppendRows([]table.Row{
			{"url", cfg.Upstream.Url},
			{"status", result.Status},
			{"access-control-allow-origin", allowOrigin},
			{"content-type", result.ContentType},
			{"challenge page", result.Challenge},
			{"elapsed", result.Elapsed.Round(time.Millisecond)},
			{"preview", result.Preview},
		})
		t.Render()
		return nil
	},
}
