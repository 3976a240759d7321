package stream

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/tmaxmax/go-sse"
)

// Default SSE event types used by SSEFramer.
const (
	DefaultSSEContentType  = "content"
	DefaultSSEMetadataType = "metadata"
)

// SSEFramer frames the answer stream as Server-Sent Events: content events carry answer fragments in
// their data, and the first metadata event carries the JSON payload. Events without a type are treated
// as content.
type SSEFramer struct {
	ContentType  string
	MetadataType string
}

// Frames yields one event per SSE event and stops after the first metadata event.
func (f SSEFramer) Frames(ctx context.Context, body io.Reader) iter.Seq2[Event, error] {
	contentType := f.ContentType
	if contentType == "" {
		contentType = DefaultSSEContentType
	}
	metadataType := f.MetadataType
	if metadataType == "" {
		metadataType = DefaultSSEMetadataType
	}

	return func(yield func(Event, error) bool) {
		sawContent := false
		for ev, err := range sse.Read(body, nil) {
			if err != nil {
				yield(Event{}, fmt.Errorf("failed to read stream: %w", err))
				return
			}
			if err := ctx.Err(); err != nil {
				yield(Event{}, err)
				return
			}

			switch ev.Type {
			case metadataType:
				yield(metadataEvent(ev.Data), nil)
				return
			case "", "message", contentType:
				if ev.Data != "" {
					sawContent = true
				}
				if !yield(contentEvent(ev.Data), nil) {
					return
				}
			}
		}

		if !sawContent {
			yield(emptyResponseEvent(), nil)
		}
	}
}
