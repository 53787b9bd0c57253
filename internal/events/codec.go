package events

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/shared"
)

// Frame wraps an event with its channel for stream transports.
type Frame struct {
	Channel Channel `json:"channel"`
	Event   Event   `json:"event"`
}

type endOfTrackPayload struct {
	URI string `json:"uri"`
}

// MarshalJSON encodes the event as an externally tagged object, e.g. {"NextPressed":null}.
func (e Event) MarshalJSON() ([]byte, error) {
	var payload any
	switch e.Type {
	case NextPressed, PreviousPressed, PlayRequested, EndOfQueueReached:
	case UrlsDropped:
		urls := e.URLs
		if urls == nil {
			urls = []string{}
		}
		payload = urls
	case EndOfTrack:
		payload = endOfTrackPayload{URI: e.URI}
	case TrackLoaded:
		if e.Metadata == nil {
			return nil, fmt.Errorf("%w: TrackLoaded without metadata", shared.ErrInvalidInput)
		}
		payload = e.Metadata
	default:
		return nil, fmt.Errorf("%w: unknown event type %d", shared.ErrInvalidInput, e.Type)
	}

	return json.Marshal(map[string]any{e.Type.String(): payload})
}

// UnmarshalJSON decodes an externally tagged event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("%w: expected exactly one event tag, got %d", shared.ErrInvalidInput, len(tagged))
	}

	for tag, raw := range tagged {
		t, ok := ParseType(tag)
		if !ok {
			return fmt.Errorf("%w: unknown event %q", shared.ErrInvalidInput, tag)
		}

		ev := Event{Type: t}
		switch t {
		case UrlsDropped:
			if err := json.Unmarshal(raw, &ev.URLs); err != nil {
				return fmt.Errorf("%w: %s: %v", shared.ErrInvalidInput, tag, err)
			}
		case EndOfTrack:
			var p endOfTrackPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return fmt.Errorf("%w: %s: %v", shared.ErrInvalidInput, tag, err)
			}
			ev.URI = p.URI
		case TrackLoaded:
			var meta models.TrackMetadata
			if err := json.Unmarshal(raw, &meta); err != nil {
				return fmt.Errorf("%w: %s: %v", shared.ErrInvalidInput, tag, err)
			}
			ev.Metadata = &meta
		}
		*e = ev
	}

	return nil
}

// DecodeFrame parses a frame and checks the event belongs on its channel.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, err
	}
	if f.Event.Type == 0 {
		return Frame{}, fmt.Errorf("%w: frame without event", shared.ErrInvalidInput)
	}
	if f.Event.Type.Channel() != f.Channel {
		return Frame{}, fmt.Errorf("%w: %s does not travel on channel %q", shared.ErrInvalidInput, f.Event.Type, f.Channel)
	}
	return f, nil
}
