package amqp

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"cashflow/internal/notify"
)

// EncodeEvent stamps missing timestamps and marshals e.
func EncodeEvent(e notify.Event) ([]byte, error) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	return json.Marshal(e)
}

// DecodeEvent parses a message body and rejects unknown tables.
func DecodeEvent(data []byte) (notify.Event, error) {
	var e notify.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return notify.Event{}, err
	}
	if !slices.Contains(notify.Tables, e.Table) {
		return notify.Event{}, fmt.Errorf("unknown table %q", e.Table)
	}
	return e, nil
}
