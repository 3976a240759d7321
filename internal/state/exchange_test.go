package state_test

import (
	"testing"

	"github.com/MegaGrindStone/docchat-web-ui/internal/models"
	"github.com/MegaGrindStone/docchat-web-ui/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyState(t *testing.T) state.State {
	t.Helper()

	s, err := state.New().AddURL("http://a")
	require.NoError(t, err)
	return s.SetInput("what is it?")
}

func TestBeginExchange(t *testing.T) {
	s := readyState(t)

	s, err := s.BeginExchange("  what is it?  ")

	require.NoError(t, err)
	assert.True(t, s.Busy)
	assert.Empty(t, s.Input)
	assert.Equal(t, []models.Message{{Role: models.RoleUser, Content: "what is it?"}}, s.Transcript)
	assert.False(t, s.HasPlaceholder())
}

func TestBeginExchangePreconditions(t *testing.T) {
	tests := []struct {
		name     string
		state    func(t *testing.T) state.State
		question string
		wantErr  error
	}{
		{
			name:     "blank question",
			state:    readyState,
			question: " \n\t",
			wantErr:  state.ErrBlankQuestion,
		},
		{
			name:     "no urls",
			state:    func(*testing.T) state.State { return state.New() },
			question: "q",
			wantErr:  state.ErrNoURLs,
		},
		{
			name: "already busy",
			state: func(t *testing.T) state.State {
				s, err := readyState(t).BeginExchange("first")
				require.NoError(t, err)
				return s
			},
			question: "second",
			wantErr:  state.ErrBusy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.state(t)

			after, err := before.BeginExchange(tt.question)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, after)
		})
	}
}

func TestChatRequest(t *testing.T) {
	s := readyState(t)

	req := s.ChatRequest(" q ", "u1")
	assert.Nil(t, req.ChatID)
	assert.Equal(t, "q", req.Question)
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, []string{"http://a"}, req.URLs)

	s.SelectedChatID = "c1"
	req = s.ChatRequest("q", "u1")
	require.NotNil(t, req.ChatID)
	assert.Equal(t, "c1", *req.ChatID)
}

func TestPlaceholderLifecycle(t *testing.T) {
	s, err := readyState(t).BeginExchange("q")
	require.NoError(t, err)

	s = s.OpenPlaceholder()
	require.True(t, s.HasPlaceholder())
	require.Len(t, s.Transcript, 2)

	patched := s.PatchPlaceholder("Hel")
	patched = patched.PatchPlaceholder("Hello")
	assert.Equal(t, "Hello", patched.Transcript[1].Content)
	assert.Equal(t, models.RoleAssistant, patched.Transcript[1].Role)
	assert.Empty(t, s.Transcript[1].Content, "earlier state keeps its own transcript")

	failed := patched.FailExchange("boom")
	require.Len(t, failed.Transcript, 2)
	assert.Equal(t, "boom", failed.Transcript[1].Content)

	ended := failed.EndExchange()
	assert.False(t, ended.Busy)
	assert.False(t, ended.HasPlaceholder())
	assert.Equal(t, ended, ended.PatchPlaceholder("ignored"))
}

func TestFailExchangeWithoutPlaceholderAppends(t *testing.T) {
	s, err := readyState(t).BeginExchange("q")
	require.NoError(t, err)

	s = s.FailExchange("network down")

	require.Len(t, s.Transcript, 2)
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: "network down"}, s.Transcript[1])
	assert.Equal(t, models.RoleUser, s.Transcript[0].Role, "user message is never rolled back")
}
