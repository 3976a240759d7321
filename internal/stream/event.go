// Package stream decodes the answer stream of the chat backend into application events.
//
// The backend streams the answer text as plain chunks and terminates it with a single metadata payload.
// How the two are separated is a framing concern: MarkerFramer implements the reserved-marker framing the
// backend speaks today, SSEFramer frames the same events over Server-Sent Events. Consumers depend only on
// the Framer interface and the Event model.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
)

// Framer turns a response body into a sequence of events. The sequence ends after the first metadata
// event, when the body is exhausted, or with a non-nil error if reading fails.
type Framer interface {
	Frames(ctx context.Context, body io.Reader) iter.Seq2[Event, error]
}

// EventKind distinguishes content fragments from the terminal metadata event.
type EventKind int

const (
	// EventContent carries a fragment of answer text to append.
	EventContent EventKind = iota + 1
	// EventMetadata is the terminal event carrying the trailing JSON payload.
	EventMetadata
)

// EmptyResponseText is the content of the synthetic event emitted when a stream ends without producing
// any content or metadata.
const EmptyResponseText = "The server returned an empty response."

// Event is a single decoded stream event.
type Event struct {
	Kind EventKind

	// Text would be filled if Kind is EventContent.
	Text string
	// Synthetic is set on the content event produced for an empty stream.
	Synthetic bool

	// Metadata holds the raw JSON payload if Kind is EventMetadata and it parsed.
	Metadata json.RawMessage
	// ParseErr is set if Kind is EventMetadata and the payload is not valid JSON.
	ParseErr error
}

func contentEvent(text string) Event {
	return Event{Kind: EventContent, Text: text}
}

func emptyResponseEvent() Event {
	return Event{Kind: EventContent, Text: EmptyResponseText, Synthetic: true}
}

func metadataEvent(payload string) Event {
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Event{Kind: EventMetadata, ParseErr: fmt.Errorf("failed to parse metadata: %w", err)}
	}
	return Event{Kind: EventMetadata, Metadata: raw}
}
