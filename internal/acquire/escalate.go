package acquire

import (
	"context"
	"errors"

	"farmacias-turno/internal/components/assert"
	"farmacias-turno/internal/components/telemetry"
)

const (
	report_escalating_acquire = "escalating.acquire"
)

type strategy interface {
	Acquire(ctx context.Context, url string) ([]byte, error)
}

// Escalating tries a cheap strategy first and only falls back to the expensive one
// when the upstream answered with a bot challenge.
type Escalating struct {
	primary  strategy
	fallback strategy
	tel      telemetry.API
}

func NewEscalating(primary, fallback strategy, tel telemetry.API) Escalating {
	assert.NotNil(primary)
	assert.NotNil(fallback)
	assert.NotNil(tel)

	return Escalating{
		primary:  primary,
		fallback: fallback,
		tel:      telemetry.NewScopedAPI("escalating", tel),
	}
}

func (e Escalating) Acquire(ctx context.Context, url string) ([]byte, error) {
	body, err := e.primary.Acquire(ctx, url)
	if err == nil {
		if !DetectChallenge(body) {
			return body, nil
		}
		e.tel.ReportWarning(report_escalating_acquire, "challenge page served with success status", url)
		return e.fallback.Acquire(ctx, url)
	}

	var acqErr *Error
	if !errors.As(err, &acqErr) || acqErr.Kind != KindUpstreamStatus {
		return nil, err
	}
	if !isChallengeStatus(acqErr.Status) && !DetectChallenge(acqErr.body) {
		return nil, err
	}

	e.tel.ReportWarning(report_escalating_acquire, "challenge detected", acqErr.Status, url)
	return e.fallback.Acquire(ctx, url)
}
