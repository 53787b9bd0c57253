// package events defines the cross-process event bus and the events exchanged with the player
package events

import (
	"context"

	"github.com/desertthunder/spotiq/internal/models"
)

// Channel names a logical stream on the bus.
type Channel string

const (
	// ChannelPlayer carries events from the player window into the queue.
	ChannelPlayer Channel = "player"
	// ChannelPlaylist carries events from the queue out to the player.
	ChannelPlaylist Channel = "playlist"
)

// Type identifies an event. Its String form is the wire tag.
type Type int

const (
	NextPressed Type = iota + 1
	PreviousPressed
	UrlsDropped
	EndOfTrack
	TrackLoaded
	PlayRequested
	EndOfQueueReached
)

var typeNames = map[Type]string{
	NextPressed:       "NextPressed",
	PreviousPressed:   "PreviousPressed",
	UrlsDropped:       "UrlsDropped",
	EndOfTrack:        "EndOfTrack",
	TrackLoaded:       "TrackLoaded",
	PlayRequested:     "PlayRequested",
	EndOfQueueReached: "EndOfQueueReached",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Channel returns the channel an event of this type travels on.
func (t Type) Channel() Channel {
	switch t {
	case TrackLoaded, PlayRequested, EndOfQueueReached:
		return ChannelPlaylist
	default:
		return ChannelPlayer
	}
}

// ParseType converts a wire tag back into a [Type].
func ParseType(tag string) (Type, bool) {
	for t, name := range typeNames {
		if name == tag {
			return t, true
		}
	}
	return 0, false
}

// Event is a single bus message. Only the payload field matching Type is set.
type Event struct {
	Type     Type
	URLs     []string              // UrlsDropped
	URI      string                // EndOfTrack
	Metadata *models.TrackMetadata // TrackLoaded
}

// Dropped builds an UrlsDropped event.
func Dropped(urls ...string) Event {
	return Event{Type: UrlsDropped, URLs: urls}
}

// Loaded builds a TrackLoaded event.
func Loaded(meta models.TrackMetadata) Event {
	return Event{Type: TrackLoaded, Metadata: &meta}
}

// Bus is a typed publish/subscribe port between the queue and the player process.
//
// Events on one channel are delivered to each subscriber in publish order.
type Bus interface {
	Publish(ctx context.Context, ch Channel, ev Event) error
	// Subscribe returns a receive channel and a function that cancels the subscription and closes it.
	Subscribe(ch Channel) (<-chan Event, func())
}
