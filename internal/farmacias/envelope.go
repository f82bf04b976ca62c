package farmacias

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform wrapper returned for every request, successful or not.
type Envelope struct {
	OK     bool
	Total  int
	Comuna string
	Data   []Farmacia
	Error  string
}

func success(comuna string, data []Farmacia) Envelope {
	if data == nil {
		data = []Farmacia{}
	}
	return Envelope{
		OK:     true,
		Total:  len(data),
		Comuna: comuna,
		Data:   data,
	}
}

func failure(message string) Envelope {
	return Envelope{Error: message}
}

// Status is the HTTP status the envelope should be served with.
func (e Envelope) Status() int {
	if e.OK {
		return http.StatusOK
	}
	return http.StatusBadGateway
}

type successJSON struct {
	OK     bool       `json:"ok"`
	Total  int        `json:"total"`
	Comuna string     `json:"comuna"`
	Data   []Farmacia `json:"data"`
}

type failureJSON struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	if !e.OK {
		return json.Marshal(failureJSON{OK: false, Error: e.Error})
	}
	data := e.Data
	if data == nil {
		data = []Farmacia{}
	}
	return json.Marshal(successJSON{
		OK:     true,
		Total:  e.Total,
		Comuna: e.Comuna,
		Data:   data,
	})
}

func (e *Envelope) UnmarshalJSON(b []byte) error {
	var raw struct {
		OK     bool       `json:"ok"`
		Total  int        `json:"total"`
		Comuna string     `json:"comuna"`
		Data   []Farmacia `json:"data"`
		Error  string     `json:"error"`
	}
	err := json.Unmarshal(b, &raw)
	if err != nil {
		return err
	}
	*e = Envelope{
		OK:     raw.OK,
		Total:  raw.Total,
		Comuna: raw.Comuna,
		Data:   raw.Data,
		Error:  raw.Error,
	}
	return nil
}
