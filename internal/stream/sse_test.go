package stream_test

import (
	"strings"
	"testing"

	"github.com/MegaGrindStone/docchat-web-ui/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEFramer(t *testing.T) {
	body := strings.NewReader("event: content\ndata: Hel\n\n" +
		"data: lo\n\n" +
		"event: metadata\ndata: {\"id\":\"c1\",\"urls\":[],\"messages\":[]}\n\n" +
		"event: content\ndata: ignored\n\n")

	events, err := collect(t, stream.SSEFramer{}, body)

	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "Hello", contentOf(events))
	assert.Equal(t, stream.EventMetadata, events[2].Kind)
	assert.JSONEq(t, `{"id":"c1","urls":[],"messages":[]}`, string(events[2].Metadata))
}

func TestSSEFramerInvalidMetadata(t *testing.T) {
	body := strings.NewReader("event: token\ndata: x\n\nevent: done\ndata: {oops\n\n")

	events, err := collect(t, stream.SSEFramer{ContentType: "token", MetadataType: "done"}, body)

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "x", events[0].Text)
	assert.Error(t, events[1].ParseErr)
}

func TestSSEFramerEmptyStream(t *testing.T) {
	events, err := collect(t, stream.SSEFramer{}, strings.NewReader(""))

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Synthetic)
}
