package scenario

import (
	"encoding/json"
	"fmt"
)

// Itinerary is the versioned document payload. Fields are explicit and
// optional; unknown top-level fields parsed from JSON are preserved in
// Extra so forward-compatible payloads survive a round trip (and stay
// part of the content hash).
type Itinerary struct {
	Destination string         `json:"destination,omitempty"`
	StartDate   string         `json:"start_date,omitempty"`
	EndDate     string         `json:"end_date,omitempty"`
	Travelers   int            `json:"travelers,omitempty"`
	Cost        float64        `json:"cost,omitempty"`
	Currency    string         `json:"currency,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	Segments    []Segment      `json:"segments,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Segment is one leg of an itinerary: a flight, a stay, an activity.
type Segment struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind,omitempty"`
	Title     string         `json:"title,omitempty"`
	Location  string         `json:"location,omitempty"`
	StartTime string         `json:"start_time,omitempty"`
	EndTime   string         `json:"end_time,omitempty"`
	Cost      float64        `json:"cost,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// knownItineraryKeys are the top-level JSON keys decoded into struct fields.
var knownItineraryKeys = map[string]bool{
	"destination": true,
	"start_date":  true,
	"end_date":    true,
	"travelers":   true,
	"cost":        true,
	"currency":    true,
	"notes":       true,
	"segments":    true,
	"extra":       true,
}

// ParseItinerary decodes itinerary JSON. Unknown top-level keys are kept
// in Extra rather than dropped.
func ParseItinerary(data []byte) (*Itinerary, error) {
	it := &Itinerary{}
	if err := json.Unmarshal(data, it); err != nil {
		return nil, fmt.Errorf("invalid itinerary JSON: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid itinerary JSON: %w", err)
	}
	for k, v := range raw {
		if knownItineraryKeys[k] {
			continue
		}
		if it.Extra == nil {
			it.Extra = make(map[string]any)
		}
		it.Extra[k] = v
	}

	return it, nil
}

// Clone returns a deep copy of the itinerary. Versions persist clones so
// later edits to the live document never mutate a stored snapshot.
func (it *Itinerary) Clone() *Itinerary {
	if it == nil {
		return nil
	}
	data, err := json.Marshal(it)
	if err != nil {
		// The struct is JSON-serializable by construction.
		panic(fmt.Sprintf("itinerary clone: %v", err))
	}
	clone := &Itinerary{}
	if err := json.Unmarshal(data, clone); err != nil {
		panic(fmt.Sprintf("itinerary clone: %v", err))
	}
	return clone
}

// Segment returns the segment with the given id, or nil.
func (it *Itinerary) Segment(segmentID string) *Segment {
	for i := range it.Segments {
		if it.Segments[i].ID == segmentID {
			return &it.Segments[i]
		}
	}
	return nil
}

// MergeSegment applies a plain field map to one segment. Known fields are
// set directly; anything else lands in the segment's Details. This is the
// partial-update surface presentation code drives.
func (it *Itinerary) MergeSegment(segmentID string, fields map[string]any) error {
	seg := it.Segment(segmentID)
	if seg == nil {
		return fmt.Errorf("segment not found: %s", segmentID)
	}

	for key, value := range fields {
		switch key {
		case "kind":
			seg.Kind = asString(value)
		case "title":
			seg.Title = asString(value)
		case "location":
			seg.Location = asString(value)
		case "start_time":
			seg.StartTime = asString(value)
		case "end_time":
			seg.EndTime = asString(value)
		case "cost":
			seg.Cost = asFloat(value)
		default:
			if seg.Details == nil {
				seg.Details = make(map[string]any)
			}
			seg.Details[key] = value
		}
	}

	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}
