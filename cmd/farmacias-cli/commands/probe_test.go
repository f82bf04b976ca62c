package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farmacias-turno/internal/acquire"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestProbe(t *testing.T) {
	var origin, userAgent string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin = r.Header.Get("Origin")
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<html><head><title>Just a moment...</title></head>\n<body></body></html>"))
	}))
	defer upstream.Close()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	result, err := Probe(cmd, upstream.URL, "https://farmacias.test", time.Second)
	require.NoError(t, err)
	require.Equal(t, "https://farmacias.test", origin)
	require.Equal(t, acquire.DefaultUserAgent, userAgent, "the upstream sees the same browser as the direct strategy")
	require.Equal(t, http.StatusForbidden, result.Status)
	require.Equal(t, "text/html", result.ContentType)
	require.Empty(t, result.AllowOrigin)
	require.True(t, result.Challenge)
	require.NotContains(t, result.Preview, "\n")
}

func TestProbeTransportError(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	_, err := Probe(cmd, url, "https://farmacias.test", time.Second)
	require.Error(t, err)
}

func TestProbeDefaultOrigin(t *testing.T) {
	flag := probeCmd.Flags().Lookup("origin")
	require.NotNil(t, flag)
	require.Equal(t, DefaultProbeOrigin, flag.DefValue)
	require.Equal(t, "https://farmacia-turno.netlify.app", DefaultProbeOrigin)
}
