package acquire

import (
	"context"
	"errors"
	"testing"

	"farmacias-turno/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeStrategy struct {
	body  []byte
	err   error
	calls int
}

func (s *fakeStrategy) Acquire(ctx context.Context, url string) ([]byte, error) {
	s.calls++
	return s.body, s.err
}

const challengePage = `<html><head><title>Just a moment...</title></head><body></body></html>`

func TestEscalating(t *testing.T) {
	payload := []byte(`[{"comuna_nombre":"TEMUCO"}]`)

	cases := []struct {
		name      string
		primary   *fakeStrategy
		escalated bool
	}{
		{
			name:    "primary succeeds",
			primary: &fakeStrategy{body: payload},
		},
		{
			name:      "challenge served with 200",
			primary:   &fakeStrategy{body: []byte(challengePage)},
			escalated: true,
		},
		{
			name: "challenge status",
			primary: &fakeStrategy{err: &Error{
				Kind:   KindUpstreamStatus,
				Status: 429,
			}},
			escalated: true,
		},
		{
			name: "challenge page with unusual status",
			primary: &fakeStrategy{err: &Error{
				Kind:   KindUpstreamStatus,
				Status: 400,
				body:   []byte(challengePage),
			}},
			escalated: true,
		},
		{
			name: "ordinary upstream failure",
			primary: &fakeStrategy{err: &Error{
				Kind:   KindUpstreamStatus,
				Status: 500,
				body:   []byte("internal error"),
			}},
		},
		{
			name:    "timeout",
			primary: &fakeStrategy{err: &Error{Kind: KindTimeout}},
		},
		{
			name:    "unclassified error",
			primary: &fakeStrategy{err: errors.New("boom")},
		},
	}

	for _, test := range cases {
		fallback := &fakeStrategy{body: payload}
		escalating := NewEscalating(test.primary, fallback, telemetry.NewRecorder())

		body, err := escalating.Acquire(context.Background(), "https://upstream.test")
		require.Equal(t, 1, test.primary.calls, test.name)

		if test.escalated {
			require.NoError(t, err, test.name)
			require.Equal(t, payload, body, test.name)
			require.Equal(t, 1, fallback.calls, test.name)
			continue
		}

		require.Equal(t, 0, fallback.calls, test.name)
		require.Equal(t, test.primary.err, err, test.name)
	}
}

func TestEscalatingFallbackError(t *testing.T) {
	primary := &fakeStrategy{err: &Error{Kind: KindUpstreamStatus, Status: 403}}
	fallback := &fakeStrategy{err: &Error{Kind: KindLaunch, Cause: ErrBrowserNotFound}}
	escalating := NewEscalating(primary, fallback, telemetry.NewRecorder())

	_, err := escalating.Acquire(context.Background(), "https://upstream.test")

	var acqErr *Error
	require.True(t, errors.As(err, &acqErr))
	require.Equal(t, KindLaunch, acqErr.Kind)
}
