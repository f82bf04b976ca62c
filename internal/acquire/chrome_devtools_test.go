package acquire

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"farmacias-turno/internal/components/telemetry"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/require"
)

// devtoolsServer speaks just enough of the devtools protocol for chromedp to
// open a tab, load one page and read its text.
type devtoolsServer struct {
	*httptest.Server
	text string

	mu           sync.Mutex
	methods      []string
	disconnected chan struct{}
}

type devtoolsMessage struct {
	ID        int64           `json:"id,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

func newDevtoolsServer(t testing.TB, text string) *devtoolsServer {
	s := &devtoolsServer{text: text, disconnected: make(chan struct{})}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *devtoolsServer) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/json/version":
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"webSocketDebuggerUrl": "ws://" + r.Host + "/devtools/browser/fake",
		})
	case "/devtools/browser/fake":
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		defer close(s.disconnected)
		defer conn.Close()

		for {
			data, op, err := wsutil.ReadClientData(conn)
			if err != nil {
				return
			}
			if op != ws.OpText {
				continue
			}
			var msg devtoolsMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				return
			}
			s.mu.Lock()
			s.methods = append(s.methods, msg.Method)
			s.mu.Unlock()

			for _, out := range s.reply(msg) {
				b, err := json.Marshal(out)
				if err != nil {
					return
				}
				if err := wsutil.WriteServerMessage(conn, ws.OpText, b); err != nil {
					return
				}
			}
		}
	default:
		http.NotFound(w, r)
	}
}

func (s *devtoolsServer) reply(msg devtoolsMessage) []devtoolsMessage {
	result := func(v string) devtoolsMessage {
		return devtoolsMessage{ID: msg.ID, SessionID: msg.SessionID, Result: json.RawMessage(v)}
	}
	event := func(method, params string) devtoolsMessage {
		return devtoolsMessage{SessionID: msg.SessionID, Method: method, Params: json.RawMessage(params)}
	}

	switch msg.Method {
	case "Target.createTarget":
		return []devtoolsMessage{result(`{"targetId":"T1"}`)}
	case "Target.attachToTarget":
		return []devtoolsMessage{result(`{"sessionId":"S1"}`)}
	case "Runtime.evaluate":
		var params struct {
			Expression string `json:"expression"`
		}
		_ = json.Unmarshal(msg.Params, &params)
		if params.Expression == "self" {
			return []devtoolsMessage{result(`{"result":{"type":"object","className":"Window"}}`)}
		}
		value, _ := json.Marshal(s.text)
		return []devtoolsMessage{result(`{"result":{"type":"string","value":` + string(value) + `}}`)}
	case "Page.navigate":
		var params struct {
			URL string `json:"url"`
		}
		_ = json.Unmarshal(msg.Params, &params)
		url, _ := json.Marshal(params.URL)
		return []devtoolsMessage{
			result(`{"frameId":"F1","loaderId":"L1"}`),
			event("Page.frameNavigated", `{"frame":{"id":"F1","loaderId":"L1","url":`+string(url)+`,"securityOrigin":"","mimeType":"text/html"}}`),
			event("Page.lifecycleEvent", `{"frameId":"F1","loaderId":"L1","name":"init","timestamp":1}`),
			event("Page.loadEventFired", `{"timestamp":1}`),
		}
	default:
		return []devtoolsMessage{result(`{}`)}
	}
}

func (s *devtoolsServer) received(method string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.methods, method)
}

func (s *devtoolsServer) connected() bool {
	select {
	case <-s.disconnected:
		return false
	default:
		return true
	}
}

func TestChromeSessionLifecycle(t *testing.T) {
	srv := newDevtoolsServer(t, `[{"comuna_nombre":"TEMUCO"}]`)
	browser := NewChromeBrowser(
		ChromeOptions{RemoteURL: srv.URL, IdleWindow: 10 * time.Millisecond},
		telemetry.NewRecorder(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	session, err := browser.Launch(ctx)
	require.NoError(t, err)

	// the session must outlive the context it was started with
	cancel()
	time.Sleep(100 * time.Millisecond)
	require.True(t, srv.connected())

	text, err := session.Render(context.Background(), "https://farmacias.example/locales")
	require.NoError(t, err)
	require.Equal(t, `[{"comuna_nombre":"TEMUCO"}]`, text)
	require.True(t, srv.received("Page.navigate"))
	require.True(t, srv.received("Emulation.setUserAgentOverride"))

	require.NoError(t, session.Close())
	require.True(t, srv.received("Target.closeTarget"))
	require.Eventually(t, func() bool { return !srv.connected() }, 5*time.Second, 10*time.Millisecond)

	// closing twice is a no-op
	require.NoError(t, session.Close())
}

func TestChromeRenderedThroughDevtools(t *testing.T) {
	srv := newDevtoolsServer(t, ` [{"comuna_nombre":"TEMUCO","local_nombre":"Farmacia A"}] `)
	browser := NewChromeBrowser(
		ChromeOptions{RemoteURL: srv.URL, IdleWindow: 10 * time.Millisecond},
		telemetry.NewRecorder(),
	)

	body, err := NewRendered(browser, 10*time.Second, telemetry.NewRecorder()).
		Acquire(context.Background(), "https://farmacias.example/locales")
	require.NoError(t, err)
	require.JSONEq(t, `[{"comuna_nombre":"TEMUCO","local_nombre":"Farmacia A"}]`, string(body))
	require.Eventually(t, func() bool { return !srv.connected() }, 5*time.Second, 10*time.Millisecond)
}

func TestChromeLaunchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	browser := NewChromeBrowser(ChromeOptions{RemoteURL: srv.URL}, telemetry.NewRecorder())
	rendered := NewRendered(browser, time.Second, telemetry.NewRecorder())

	type outcome struct {
		body []byte
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		body, err := rendered.Acquire(context.Background(), "https://farmacias.example/locales")
		done <- outcome{body, err}
	}()

	select {
	case res := <-done:
		require.Nil(t, res.body)
		var acqErr *Error
		require.ErrorAs(t, res.err, &acqErr)
		require.Equal(t, KindLaunch, acqErr.Kind)
	case <-time.After(3 * time.Second):
		t.Fatal("failed launch did not release the session")
	}
}

func TestChromeLaunchDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	browser := NewChromeBrowser(ChromeOptions{RemoteURL: srv.URL}, telemetry.NewRecorder())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	session, err := browser.Launch(ctx)
	require.Nil(t, session)
	require.True(t, errors.Is(err, context.DeadlineExceeded), "unexpected error: %v", err)
	require.Less(t, time.Since(start), 2*time.Second)
}
