package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationStore(t *testing.T) {
	t.Run("CreateAndGet", func(t *testing.T) {
		s := NewConversationStore(10)

		conv := s.Create()
		require.NotEmpty(t, conv.ID)
		assert.Empty(t, conv.Turns)

		got, ok := s.Get(conv.ID)
		require.True(t, ok)
		assert.Equal(t, conv.ID, got.ID)
	})

	t.Run("GetOrCreateKnownID", func(t *testing.T) {
		s := NewConversationStore(10)
		conv := s.Create()
		s.Append(conv.ID, Turn{UserText: "hello", AssistantText: "hi"})

		got := s.GetOrCreate(conv.ID)
		assert.Equal(t, conv.ID, got.ID)
		require.Len(t, got.Turns, 1)
		assert.Equal(t, "hello", got.Turns[0].UserText)
	})

	t.Run("GetOrCreateUnknownIDAllocatesFresh", func(t *testing.T) {
		s := NewConversationStore(10)

		got := s.GetOrCreate("never-seen")
		assert.NotEqual(t, "never-seen", got.ID)
		assert.Empty(t, got.Turns)
		assert.Equal(t, 1, s.Count())
	})

	t.Run("GetOrCreateEmptyIDAllocatesFresh", func(t *testing.T) {
		s := NewConversationStore(10)

		got := s.GetOrCreate("")
		assert.NotEmpty(t, got.ID)
		assert.Empty(t, got.Turns)
	})

	t.Run("BoundedHistory", func(t *testing.T) {
		const retention = 5
		s := NewConversationStore(retention)
		conv := s.Create()

		for i := 0; i < 8; i++ {
			s.Append(conv.ID, Turn{UserText: fmt.Sprintf("u%d", i), AssistantText: fmt.Sprintf("a%d", i)})
			got, ok := s.Get(conv.ID)
			require.True(t, ok)
			assert.LessOrEqual(t, len(got.Turns), retention)
		}

		got, ok := s.Get(conv.ID)
		require.True(t, ok)
		require.Len(t, got.Turns, retention)
		// The retained turns are exactly the most recent, in order.
		for i, turn := range got.Turns {
			assert.Equal(t, fmt.Sprintf("u%d", i+3), turn.UserText)
		}
	})

	t.Run("SequenceAssignedWhenUnset", func(t *testing.T) {
		s := NewConversationStore(10)
		conv := s.Create()

		s.Append(conv.ID, Turn{UserText: "a", AssistantText: "b"})
		s.Append(conv.ID, Turn{UserText: "c", AssistantText: "d", Sequence: 42})
		s.Append(conv.ID, Turn{UserText: "e", AssistantText: "f"})

		got, _ := s.Get(conv.ID)
		require.Len(t, got.Turns, 3)
		assert.Equal(t, 1, got.Turns[0].Sequence)
		assert.Equal(t, 42, got.Turns[1].Sequence)
		assert.Equal(t, 3, got.Turns[2].Sequence)
	})

	t.Run("AppendToUnknownIDIsNoOp", func(t *testing.T) {
		s := NewConversationStore(10)

		s.Append("ghost", Turn{UserText: "hello"})
		assert.Equal(t, 0, s.Count())
	})

	t.Run("AppendAfterDeleteIsNoOp", func(t *testing.T) {
		s := NewConversationStore(10)
		conv := s.Create()
		require.True(t, s.Delete(conv.ID))

		s.Append(conv.ID, Turn{UserText: "late"})
		_, ok := s.Get(conv.ID)
		assert.False(t, ok)
	})

	t.Run("DeleteIdempotence", func(t *testing.T) {
		s := NewConversationStore(10)

		assert.False(t, s.Delete("missing"))
		assert.False(t, s.Delete("missing"))

		conv := s.Create()
		assert.True(t, s.Delete(conv.ID))
		assert.False(t, s.Delete(conv.ID))

		// A later GetOrCreate with the deleted id allocates a fresh session.
		fresh := s.GetOrCreate(conv.ID)
		assert.NotEqual(t, conv.ID, fresh.ID)
	})

	t.Run("SnapshotIsolation", func(t *testing.T) {
		s := NewConversationStore(10)
		conv := s.Create()
		s.Append(conv.ID, Turn{UserText: "original"})

		got, _ := s.Get(conv.ID)
		got.Turns[0].UserText = "mutated"

		again, _ := s.Get(conv.ID)
		assert.Equal(t, "original", again.Turns[0].UserText)
	})

	t.Run("Sweep", func(t *testing.T) {
		s := NewConversationStore(10)
		stale := s.Create()
		fresh := s.Create()
		s.Append(fresh.ID, Turn{UserText: "keepalive"})

		// The stale session's last update is in the past relative to a
		// future sweep time.
		removed := s.Sweep(time.Now().Add(2*time.Hour), time.Hour)
		assert.Equal(t, 2, removed)
		_, ok := s.Get(stale.ID)
		assert.False(t, ok)

		// A fresh sweep removes nothing.
		next := s.Create()
		assert.Equal(t, 0, s.Sweep(time.Now(), time.Hour))
		_, ok = s.Get(next.ID)
		assert.True(t, ok)
	})

	t.Run("ConcurrentAppends", func(t *testing.T) {
		const retention = 10
		s := NewConversationStore(retention)
		conv := s.Create()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				s.Append(conv.ID, Turn{UserText: fmt.Sprintf("u%d", i)})
			}(i)
		}
		wg.Wait()

		got, ok := s.Get(conv.ID)
		require.True(t, ok)
		assert.Len(t, got.Turns, retention)
	})
}
