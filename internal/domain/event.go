package domain

import "time"

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `db:"latitude"  json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
}

// EventData is what the scraper extracts from a single event page.
// Location and Coordinates are optional: listing pages frequently omit one
// or both, and the classification pipeline decides what that means.
type EventData struct {
	URL           string
	Name          string
	Description   string
	LocationName  string
	Coordinates   *Coordinates
	StartTime     *time.Time
	EndTime       *time.Time
	InterestCount int
	OrganizerURL  string
}

// Event is a catalog row for an ingested event.
type Event struct {
	ID            string      `db:"id"             json:"id"`
	Name          string      `db:"name"           json:"name"`
	Description   string      `db:"description"    json:"description"`
	LocationName  string      `db:"location_name"  json:"location_name"`
	Latitude      float64     `db:"latitude"       json:"latitude"`
	Longitude     float64     `db:"longitude"      json:"longitude"`
	StartTime     time.Time   `db:"start_time"     json:"start_time"`
	EndTime       *time.Time  `db:"end_time"       json:"end_time,omitempty"`
	InterestCount int         `db:"interest_count" json:"interest_count"`
	SourceURL     string      `db:"source_url"     json:"source_url"`
	CreatedAt     time.Time   `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"     json:"updated_at"`
}

// Coords returns the event's location as a Coordinates value.
func (e *Event) Coords() Coordinates {
	return Coordinates{Latitude: e.Latitude, Longitude: e.Longitude}
}

// Group is a community whose location anchors the proximity filter.
type Group struct {
	ID        string  `db:"id"        json:"id"`
	Name      string  `db:"name"      json:"name"`
	City      string  `db:"city"      json:"city"`
	Latitude  float64 `db:"latitude"  json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
	// MemberCount approximates community activity; cities are crawled in
	// descending activity order.
	MemberCount int `db:"member_count" json:"member_count"`
}
