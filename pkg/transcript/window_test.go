package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-hire/interviewer/pkg/interview"
)

func msg(speaker interview.Speaker, content string) interview.Message {
	return interview.Message{Speaker: speaker, Content: content}
}

func TestWindowReturnsUnchangedWhenShort(t *testing.T) {
	full := []interview.Message{
		msg(interview.SpeakerInterviewer, "Tell me about a project"),
		msg(interview.SpeakerCandidate, "We rebuilt checkout"),
	}
	got := Window(full, 4)
	assert.Equal(t, full, got)
}

func TestWindowKeepsOpeningExchangeAndRecentTail(t *testing.T) {
	full := []interview.Message{
		msg(interview.SpeakerInterviewer, "Tell me about a project"), // opening[0]
		msg(interview.SpeakerCandidate, "We rebuilt checkout"),       // opening[1]
		msg(interview.SpeakerInterviewer, "q2"),
		msg(interview.SpeakerCandidate, "a2"),
		msg(interview.SpeakerInterviewer, "q3"),
		msg(interview.SpeakerCandidate, "a3"),
	}

	got := Window(full, 2)
	require.Len(t, got, 4)
	assert.Equal(t, "Tell me about a project", got[0].Content)
	assert.Equal(t, "We rebuilt checkout", got[1].Content)
	assert.Equal(t, "q3", got[2].Content)
	assert.Equal(t, "a3", got[3].Content)
}
