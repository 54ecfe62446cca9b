package events

import (
	"encoding/json"
	"time"
)

// Event types published on the hub.
const (
	TypeCycleFinished    = "cycle_finished"
	TypeResponseRecorded = "response_recorded"
	TypeFollowUpDue      = "followup_due"
	TypeFollowUpRecorded = "followup_recorded"
	TypeJobsScraped      = "jobs_scraped"
	TypeConfigUpdated    = "config_updated"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(at time.Time, reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        at.UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
