package model

import "time"

// RawLine is a single line read from a log file, before parsing.
type RawLine struct {
	Text   string `json:"text"`
	Source string `json:"source"` // originating file path
}

// Event represents a single parsed access log line.
type Event struct {
	IP     string `json:"ip"`
	Method string `json:"method"`
	Path   string `json:"path"`
	Status int    `json:"status"`
	Raw    string `json:"-"` // original line text

	// Timestamp is nil when the grammar has no time field or it did not parse.
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// StatusClass returns the leading digit of the status code (2 for 200, 4 for 404).
func (e Event) StatusClass() int {
	return e.Status / 100
}

// Enriched is an Event annotated with the geolocation of its client IP.
type Enriched struct {
	Event
	Location string `json:"location"`
	GeoKind  string `json:"geo_kind"`
}
