package farmacias

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"farmacias-turno/internal/acquire"
	"farmacias-turno/internal/components/assert"
	"farmacias-turno/internal/components/telemetry"
)

const (
	report_pipeline_run     = "pipeline.run"
	report_pipeline_records = "pipeline.records"
)

const (
	DefaultUpstreamURL = "https://midas.minsal.cl/farmacia_v2/WS/getLocalesTurnos.php"
	DefaultComuna      = "temuco"
)

const (
	msgUnexpectedFormat = "Formato inesperado de respuesta del proveedor"
	msgUnreachable      = "Error al consultar proveedor"
	msgTimeout          = "Tiempo de espera agotado al consultar proveedor"
	msgLaunch           = "No se pudo iniciar el navegador"
)

// ErrUnexpectedFormat is returned when the upstream payload is not a JSON array.
var ErrUnexpectedFormat = errors.New("unexpected upstream format")

// Acquirer obtains the raw upstream payload.
type Acquirer interface {
	Acquire(ctx context.Context, url string) ([]byte, error)
}

type Config struct {
	UpstreamURL string
	// DefaultComuna is queried when the request names none.
	DefaultComuna string
}

// Pipeline fetches the national list of pharmacies on duty and narrows it down to a comuna.
type Pipeline struct {
	cfg      Config
	acquirer Acquirer
	tel      telemetry.API
}

func NewPipeline(cfg Config, acquirer Acquirer, tel telemetry.API) Pipeline {
	assert.NotNil(acquirer)
	assert.NotNil(tel)

	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = DefaultUpstreamURL
	}
	if NormalizeComuna(cfg.DefaultComuna) == "" {
		cfg.DefaultComuna = DefaultComuna
	}

	return Pipeline{
		cfg:      cfg,
		acquirer: acquirer,
		tel:      telemetry.NewScopedAPI("farmacias", tel),
	}
}

// Records acquires and decodes the full upstream list.
func (p Pipeline) Records(ctx context.Context) ([]UpstreamRecord, error) {
	payload, err := p.acquirer.Acquire(ctx, p.cfg.UpstreamURL)
	if err != nil {
		return nil, err
	}

	var decoded any
	err = json.Unmarshal(payload, &decoded)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_records, fmt.Errorf("decode: %w", err))
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedFormat, err)
	}
	items, ok := decoded.([]any)
	if !ok {
		p.tel.ReportBroken(report_pipeline_records, fmt.Errorf("payload is %T, not an array", decoded))
		return nil, ErrUnexpectedFormat
	}

	records := make([]UpstreamRecord, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			// non-object entries can never match a comuna
			continue
		}
		records = append(records, record)
	}
	p.tel.ReportDebug("records acquired", len(records))
	return records, nil
}

// Run performs one request, it never fails: errors are reported inside the envelope.
func (p Pipeline) Run(ctx context.Context, rawComuna string) Envelope {
	// only an absent comuna falls back to the default, a blank one is a
	// query for records without a comuna
	if rawComuna == "" {
		rawComuna = p.cfg.DefaultComuna
	}
	comuna := NormalizeComuna(rawComuna)

	records, err := p.Records(ctx)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_run, err, comuna)
		return failure(FailureMessage(err))
	}

	data := Filter(records, comuna)
	p.tel.ReportDebug("filtered records", comuna, len(data))
	return success(comuna, data)
}

// Filter keeps the records of the given (already normalized) comuna, in upstream order.
func Filter(records []UpstreamRecord, comuna string) []Farmacia {
	out := []Farmacia{}
	for _, record := range records {
		if NormalizeComuna(record[fieldComuna]) != comuna {
			continue
		}
		out = append(out, MapRecord(record))
	}
	return out
}

// FailureMessage turns a pipeline error into the message shown to users.
func FailureMessage(err error) string {
	if errors.Is(err, ErrUnexpectedFormat) {
		return msgUnexpectedFormat
	}

	var acqErr *acquire.Error
	if !errors.As(err, &acqErr) {
		return msgUnreachable
	}
	switch acqErr.Kind {
	case acquire.KindUpstreamStatus:
		return fmt.Sprintf("Error del proveedor (%d): %s", acqErr.Status, acqErr.Excerpt)
	case acquire.KindTimeout:
		return msgTimeout
	case acquire.KindParse:
		return fmt.Sprintf("Respuesta del proveedor no es JSON válido: %s", acqErr.Excerpt)
	case acquire.KindLaunch:
		return msgLaunch
	default:
		return msgUnreachable
	}
}
