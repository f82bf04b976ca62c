package acquire

import (
	"context"
	"io"
	"log"
	"net/url"
	"testing"
	"time"

	"farmacias-turno/internal/components/telemetry"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupHeadlessShell(t testing.TB) (string, func(t testing.TB)) {
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "chromedp/headless-shell:latest",
				ExposedPorts: []string{"9222/tcp"},
				WaitingFor:   wait.ForListeningPort("9222/tcp"),
			},
		},
	)
	if err != nil {
		t.Skipf("headless-shell container unavailable: %v", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "9222/tcp", "ws")
	if err != nil {
		t.Fatal(err)
	}

	return endpoint, func(t testing.TB) {
		err := container.Terminate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}

func dataURL(mime, content string) string {
	return "data:" + mime + "," + url.PathEscape(content)
}

func TestChromeRendered(t *testing.T) {
	endpoint, cleanup := setupHeadlessShell(t)
	defer cleanup(t)

	browser := NewChromeBrowser(ChromeOptions{RemoteURL: endpoint}, telemetry.NewRecorder())
	rendered := NewRendered(browser, 30*time.Second, telemetry.NewRecorder())

	body, err := rendered.Acquire(
		context.Background(),
		dataURL("text/plain", `[{"comuna_nombre":"TEMUCO","local_nombre":"Farmacia A"}]`),
	)
	require.NoError(t, err)
	require.JSONEq(t, `[{"comuna_nombre":"TEMUCO","local_nombre":"Farmacia A"}]`, string(body))

	_, err = rendered.Acquire(
		context.Background(),
		dataURL("text/html", `<html><head><title>Just a moment...</title></head><body>Checking your browser</body></html>`),
	)
	var acqErr *Error
	require.ErrorAs(t, err, &acqErr)
	require.Equal(t, KindParse, acqErr.Kind)
	require.Equal(t, "Checking your browser", acqErr.Excerpt)
}

func TestChromeSessionCloseAfterCancel(t *testing.T) {
	endpoint, cleanup := setupHeadlessShell(t)
	defer cleanup(t)

	browser := NewChromeBrowser(ChromeOptions{RemoteURL: endpoint}, telemetry.NewRecorder())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	session, err := browser.Launch(ctx)
	require.NoError(t, err)

	renderCtx, renderCancel := context.WithCancel(context.Background())
	renderCancel()
	_, err = session.Render(renderCtx, dataURL("text/plain", "[]"))
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
}
