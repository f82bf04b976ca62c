package farmacias

import (
	"math"
	"strconv"
	"strings"
)

// UpstreamRecord is a single element of the upstream payload, it is left untyped
// because the provider makes no promises about field types.
type UpstreamRecord = map[string]any

const (
	fieldComuna    = "comuna_nombre"
	fieldNombre    = "local_nombre"
	fieldDireccion = "local_direccion"
	fieldTelefono  = "local_telefono"
	fieldApertura  = "funcionamiento_hora_apertura"
	fieldCierre    = "funcionamiento_hora_cierre"
	fieldLat       = "local_lat"
	fieldLng       = "local_lng"
)

// Farmacia is the public shape of a pharmacy on duty. Every key is always present.
type Farmacia struct {
	Name    string   `json:"nombre"`
	Address string   `json:"direccion"`
	Phone   string   `json:"telefono"`
	Hours   string   `json:"horario"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// MapRecord projects an upstream record into a Farmacia.
func MapRecord(record UpstreamRecord) Farmacia {
	return Farmacia{
		Name:    text(record[fieldNombre]),
		Address: text(record[fieldDireccion]),
		Phone:   text(record[fieldTelefono]),
		Hours:   BuildHorario(record[fieldApertura], record[fieldCierre]),
		Lat:     coordinate(record[fieldLat]),
		Lng:     coordinate(record[fieldLng]),
	}
}

// coordinate converts a value into a number only when the value is truthy, so an
// exact 0 coordinate is reported as null just like a missing one.
func coordinate(value any) *float64 {
	var out float64
	switch v := value.(type) {
	case float64:
		if v == 0 {
			return nil
		}
		out = v
	case string:
		if v == "" {
			return nil
		}
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			out = 0
			break
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		out = parsed
	case bool:
		if !v {
			return nil
		}
		out = 1
	default:
		return nil
	}

	if math.IsNaN(out) || math.IsInf(out, 0) {
		return nil
	}
	return &out
}
