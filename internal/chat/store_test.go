package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppendAndCount(t *testing.T) {
	s := NewStore(50)
	s.Append("sid", Turn{Role: RoleUser, Text: "hello"})
	s.Append("sid", Turn{Role: RoleAssistant, Text: "hi there"})
	s.Append("sid", Turn{Role: RoleUser, Text: "another"})

	assert.Equal(t, 2, s.CountBy("sid", RoleUser))
	assert.Equal(t, 1, s.CountBy("sid", RoleAssistant))
	assert.Len(t, s.Turns("sid"), 3)

	// Unknown sessions are empty, not nil-pointer territory.
	assert.Equal(t, 0, s.CountBy("other", RoleUser))
	assert.Empty(t, s.Turns("other"))
}

func TestStoreTurnsReturnsCopy(t *testing.T) {
	s := NewStore(50)
	s.Append("sid", Turn{Role: RoleUser, Text: "original"})

	turns := s.Turns("sid")
	turns[0].Text = "mutated"

	assert.Equal(t, "original", s.Turns("sid")[0].Text)
}

func TestStoreTrimsToMaxTurns(t *testing.T) {
	s := NewStore(4)
	for i := 0; i < 10; i++ {
		s.Append("sid", Turn{Role: RoleUser, Text: fmt.Sprintf("msg %d", i)})
	}
	turns := s.Turns("sid")
	require.Len(t, turns, 4)
	assert.Equal(t, "msg 6", turns[0].Text)
	assert.Equal(t, "msg 9", turns[3].Text)
}

func TestStorePendingLifecycle(t *testing.T) {
	s := NewStore(50)

	require.True(t, s.BeginExchange("sid", "question"))
	assert.True(t, s.Pending("sid"))
	assert.Equal(t, 1, s.Questions("sid"))
	// Only one reply may be in flight, and the loser appends nothing.
	assert.False(t, s.BeginExchange("sid", "interloper"))
	assert.Len(t, s.Turns("sid"), 2)
	assert.Equal(t, 1, s.Questions("sid"))

	s.FillPending("sid", "the answer")
	assert.False(t, s.Pending("sid"))

	turns := s.Turns("sid")
	require.Len(t, turns, 2)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "question", turns[0].Text)
	assert.Equal(t, RoleAssistant, turns[1].Role)
	assert.Equal(t, "the answer", turns[1].Text)
	assert.False(t, turns[1].Pending)
}

func TestStoreQuestionCountSurvivesTrim(t *testing.T) {
	s := NewStore(4)
	s.Append("sid", Turn{Role: RoleUser, Text: "q1"})
	s.Append("sid", Turn{Role: RoleUser, Text: "q2"})
	for i := 0; i < 8; i++ {
		s.Append("sid", Turn{Role: RoleAssistant, Text: fmt.Sprintf("reply %d", i)})
	}

	assert.Equal(t, 0, s.CountBy("sid", RoleUser))
	assert.Equal(t, 2, s.Questions("sid"))
}

func TestStoreDelete(t *testing.T) {
	s := NewStore(50)
	s.Append("sid", Turn{Role: RoleUser, Text: "hello"})
	s.SetMode("sid", ModeAwaitingEmail)

	s.Delete("sid")

	assert.Empty(t, s.Turns("sid"))
	assert.Equal(t, 0, s.Questions("sid"))
	assert.Equal(t, ModeNormal, s.Mode("sid"))
}

func TestStoreModeDefaultsToNormal(t *testing.T) {
	s := NewStore(50)
	assert.Equal(t, ModeNormal, s.Mode("sid"))

	s.SetMode("sid", ModeAwaitingEmail)
	assert.Equal(t, ModeAwaitingEmail, s.Mode("sid"))
	assert.Equal(t, ModeNormal, s.Mode("other"))
}
