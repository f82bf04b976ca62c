package chrono

import "time"

// API is the source of the current time.
//
// note: fault injection point
type API interface {
	Now() time.Time
}

type StandardImpl struct{}

func NewStandardImpl() StandardImpl {
	return StandardImpl{}
}

func (StandardImpl) Now() time.Time {
	return time.Now()
}

// FixedImpl always returns the same instant, it exists for tests.
type FixedImpl struct {
	At time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.At
}

// ISOTimestamp formats t in UTC with millisecond precision, ex. 2024-08-26T14:03:01.512Z
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
