package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMarker is the token the backend writes between the answer text and the metadata payload.
const DefaultMarker = "__CHAT_METADATA__"

// readBufferSize bounds a single read of the body, which the decoder sees as one chunk.
const readBufferSize = 64 * 1024

// MarkerDecoder is the state machine behind MarkerFramer. It is fed decoded text chunks one at a time and
// returns the events each chunk produces.
//
// The marker is only recognised when it lies entirely within one chunk. A marker split across two chunks
// is passed through as content.
type MarkerDecoder struct {
	marker string

	sawContent bool
	done       bool
}

// NewMarkerDecoder creates a decoder for the given marker. An empty marker selects DefaultMarker.
func NewMarkerDecoder(marker string) *MarkerDecoder {
	if marker == "" {
		marker = DefaultMarker
	}
	return &MarkerDecoder{marker: marker}
}

// Feed decodes one chunk. After the chunk carrying the marker has been fed, the decoder is done and
// further chunks produce no events.
func (d *MarkerDecoder) Feed(chunk string) []Event {
	if d.done {
		return nil
	}

	before, after, found := strings.Cut(chunk, d.marker)
	if !found {
		if chunk != "" {
			d.sawContent = true
		}
		return []Event{contentEvent(chunk)}
	}

	d.done = true
	events := make([]Event, 0, 2)
	if before != "" {
		d.sawContent = true
		events = append(events, contentEvent(before))
	}
	return append(events, metadataEvent(after))
}

// End is called when the stream is exhausted. It yields the synthetic empty-response event if the stream
// produced neither content nor metadata.
func (d *MarkerDecoder) End() []Event {
	if d.done {
		return nil
	}
	d.done = true
	if d.sawContent {
		return nil
	}
	return []Event{emptyResponseEvent()}
}

// Done reports whether the decoder has seen the marker or the end of the stream.
func (d *MarkerDecoder) Done() bool {
	return d.done
}

// MarkerFramer frames a plain text stream terminated by a marker and a JSON payload.
type MarkerFramer struct {
	Marker string
}

// Frames reads the body sequentially and feeds each read to the decoder as one chunk. Bytes are decoded
// as UTF-8 with streaming semantics: an incomplete multi-byte sequence at the end of a read is carried
// over to the next one instead of being replaced. Reading stops as soon as the marker is seen.
func (f MarkerFramer) Frames(ctx context.Context, body io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		dec := NewMarkerDecoder(f.Marker)
		utf8Dec := unicode.UTF8.NewDecoder()
		buf := make([]byte, readBufferSize)
		var pending []byte

		for {
			if err := ctx.Err(); err != nil {
				yield(Event{}, err)
				return
			}

			n, err := body.Read(buf)
			eof := errors.Is(err, io.EOF)

			if n > 0 || (eof && len(pending) > 0) {
				src := append(pending, buf[:n]...)
				text, rest, decErr := decodeUTF8(utf8Dec, src, eof)
				if decErr != nil {
					yield(Event{}, fmt.Errorf("failed to decode stream: %w", decErr))
					return
				}
				pending = rest

				if text != "" {
					for _, ev := range dec.Feed(text) {
						if !yield(ev, nil) {
							return
						}
					}
					if dec.Done() {
						return
					}
				}
			}

			if eof {
				for _, ev := range dec.End() {
					if !yield(ev, nil) {
						return
					}
				}
				return
			}
			if err != nil {
				yield(Event{}, fmt.Errorf("failed to read stream: %w", err))
				return
			}
		}
	}
}

// decodeUTF8 decodes src in one pass. The trailing bytes of an incomplete sequence are returned as rest
// unless atEOF is set.
func decodeUTF8(t transform.Transformer, src []byte, atEOF bool) (string, []byte, error) {
	dst := make([]byte, len(src)+utf8.UTFMax)
	var out []byte
	for {
		nDst, nSrc, err := t.Transform(dst, src, atEOF)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]

		switch {
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				dst = make([]byte, 2*len(dst))
			}
		case errors.Is(err, transform.ErrShortSrc):
			return string(out), bytes.Clone(src), nil
		case err != nil:
			return "", nil, err
		default:
			return string(out), nil, nil
		}
	}
}
