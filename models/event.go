// analytics/models/event.go
package models

import (
	"encoding/json"
	"fmt"
)

// Event types recorded by the display pages.
const (
	EventPageView         = "page_view"
	EventSessionStart     = "session_start"
	EventSessionEnd       = "session_end"
	EventSessionPause     = "session_pause"
	EventSessionResume    = "session_resume"
	EventVideoPlay        = "video_play"
	EventVideoPause       = "video_pause"
	EventVideoLoop        = "video_loop"
	EventVideoError       = "video_error"
	EventVideoLoaded      = "video_loaded"
	EventFullscreenChange = "fullscreen_change"
	EventHeartbeat        = "heartbeat"
)

// Reserved keys of an event. Everything else lives in Fields.
const (
	FieldID        = "id"
	FieldTimestamp = "timestamp"
	FieldType      = "type"
	FieldScreen    = "screen"
)

// Event is a single recorded display event. Type-specific data
// (duration, loopCount, sessionId, ...) is kept in Fields and flattened
// next to the fixed keys when encoded.
type Event struct {
	ID        float64
	Timestamp string
	Type      string
	Screen    string
	Fields    map[string]any
}

// Merge applies extra fields on top of the event. Extras win over the
// fixed keys when their value has a usable type; an override of the
// wrong type is rejected and reported in the returned slice.
//
// Decoding keeps a mistyped reserved value in Fields instead, so a
// stored event is never dropped for one odd field.
func (e *Event) Merge(extra map[string]any) []string {
	var rejected []string
	for k, v := range extra {
		switch k {
		case FieldID:
			if n, ok := AsNumber(v); ok {
				e.ID = n
			} else {
				rejected = append(rejected, k)
			}
		case FieldTimestamp, FieldType, FieldScreen:
			s, ok := v.(string)
			if !ok {
				rejected = append(rejected, k)
				continue
			}
			switch k {
			case FieldTimestamp:
				e.Timestamp = s
			case FieldType:
				e.Type = s
			default:
				e.Screen = s
			}
		default:
			if e.Fields == nil {
				e.Fields = make(map[string]any)
			}
			e.Fields[k] = v
		}
	}
	return rejected
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+4)
	for k, v := range e.Fields {
		out[k] = v
	}
	// a reserved key left in Fields holds a mistyped stored value and is
	// written back as it was read
	for k, v := range map[string]any{
		FieldID:        e.ID,
		FieldTimestamp: e.Timestamp,
		FieldType:      e.Type,
		FieldScreen:    e.Screen,
	} {
		if _, kept := e.Fields[k]; !kept {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("event is not an object")
	}
	*e = Event{}
	for _, k := range e.Merge(raw) {
		if e.Fields == nil {
			e.Fields = make(map[string]any)
		}
		e.Fields[k] = raw[k]
	}
	return nil
}

// AsNumber reports the numeric value of v for the number types that
// reach an event through Go callers or decoded JSON.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
