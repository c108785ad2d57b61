package database

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestGetOrCreateConversation tests conversation creation and reuse
func TestGetOrCreateConversation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	t.Run("creates a new conversation", func(t *testing.T) {
		conv, created, err := db.GetOrCreateConversation(alice.ID, bob.ID, nil)

		assert.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, uuid.Nil, conv.ID)
		assert.True(t, conv.IsActive)
		assert.Nil(t, conv.RelatedProductID)
		assert.ElementsMatch(t, []uuid.UUID{alice.ID, bob.ID}, conv.Participants)

		// Both participant rows exist
		_, err = db.GetParticipant(conv.ID, alice.ID)
		assert.NoError(t, err)
		_, err = db.GetParticipant(conv.ID, bob.ID)
		assert.NoError(t, err)
	})

	t.Run("reuses the conversation regardless of argument order", func(t *testing.T) {
		first, created, err := db.GetOrCreateConversation(alice.ID, bob.ID, nil)
		assert.NoError(t, err)
		assert.False(t, created)

		second, created, err := db.GetOrCreateConversation(bob.ID, alice.ID, nil)
		assert.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("different products get different conversations", func(t *testing.T) {
		productA := uuid.New()
		productB := uuid.New()

		general, _, err := db.GetOrCreateConversation(alice.ID, bob.ID, nil)
		assert.NoError(t, err)

		convA, created, err := db.GetOrCreateConversation(alice.ID, bob.ID, &productA)
		assert.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, general.ID, convA.ID)
		assert.Equal(t, productA, *convA.RelatedProductID)

		convB, created, err := db.GetOrCreateConversation(alice.ID, bob.ID, &productB)
		assert.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, convA.ID, convB.ID)

		// Same product again comes back deduplicated
		again, created, err := db.GetOrCreateConversation(bob.ID, alice.ID, &productA)
		assert.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, convA.ID, again.ID)
	})

	t.Run("rejects a conversation with oneself", func(t *testing.T) {
		conv, created, err := db.GetOrCreateConversation(alice.ID, alice.ID, nil)

		assert.Equal(t, ErrInvalidParticipants, err)
		assert.False(t, created)
		assert.Nil(t, conv)
	})
}

// TestGetOrCreateConversationConcurrent hammers the same pair from many
// goroutines; every call must settle on the same conversation row.
func TestGetOrCreateConversationConcurrent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	const workers = 10

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Alternate argument order to exercise pair normalization too
			a, b := alice.ID, bob.ID
			if i%2 == 1 {
				a, b = b, a
			}
			conv, _, err := db.GetOrCreateConversation(a, b, nil)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		assert.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	// Exactly one row made it to the table
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&count)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

// TestGetConversationByID tests direct conversation lookup
func TestGetConversationByID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	created, _, err := db.GetOrCreateConversation(alice.ID, bob.ID, nil)
	assert.NoError(t, err)

	t.Run("existing conversation", func(t *testing.T) {
		conv, err := db.GetConversationByID(created.ID)
		assert.NoError(t, err)
		assert.Equal(t, created.ID, conv.ID)
		assert.ElementsMatch(t, []uuid.UUID{alice.ID, bob.ID}, conv.Participants)
	})

	t.Run("non-existent conversation", func(t *testing.T) {
		conv, err := db.GetConversationByID(uuid.New())
		assert.Equal(t, ErrConversationNotFound, err)
		assert.Nil(t, conv)
	})
}

// TestListConversations tests ordering and unread counts in the listing
func TestListConversations(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")

	withBob, _, err := db.GetOrCreateConversation(alice.ID, bob.ID, nil)
	assert.NoError(t, err)
	withCarol, _, err := db.GetOrCreateConversation(alice.ID, carol.ID, nil)
	assert.NoError(t, err)

	// Bob sends two messages, so his conversation has the newer activity and
	// an unread count of 2 for Alice
	postTestMessage(t, db, withCarol.ID, carol.ID, "hey alice")
	postTestMessage(t, db, withBob.ID, bob.ID, "is the textbook still available?")
	postTestMessage(t, db, withBob.ID, bob.ID, "I can collect today")

	conversations, err := db.ListConversations(alice.ID)
	assert.NoError(t, err)
	assert.Len(t, conversations, 2)

	assert.Equal(t, withBob.ID, conversations[0].ID)
	assert.Equal(t, 2, conversations[0].UnreadCount)
	assert.NotNil(t, conversations[0].LastMessageAt)

	assert.Equal(t, withCarol.ID, conversations[1].ID)
	assert.Equal(t, 1, conversations[1].UnreadCount)

	// Alice's own messages never count against her
	postTestMessage(t, db, withBob.ID, alice.ID, "yes, still available")
	conversations, err = db.ListConversations(alice.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, conversations[0].UnreadCount)

	// Bob sees Alice's reply as his one unread
	bobConversations, err := db.ListConversations(bob.ID)
	assert.NoError(t, err)
	assert.Len(t, bobConversations, 1)
	assert.Equal(t, 1, bobConversations[0].UnreadCount)
}

// TestGetOtherParticipant tests counterpart resolution
func TestGetOtherParticipant(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	mallory := createTestUser(t, db, "mallory")

	conv, _, err := db.GetOrCreateConversation(alice.ID, bob.ID, nil)
	assert.NoError(t, err)

	other, err := db.GetOtherParticipant(conv.ID, alice.ID)
	assert.NoError(t, err)
	assert.Equal(t, bob.ID, other)

	other, err = db.GetOtherParticipant(conv.ID, bob.ID)
	assert.NoError(t, err)
	assert.Equal(t, alice.ID, other)

	_, err = db.GetOtherParticipant(conv.ID, mallory.ID)
	assert.Equal(t, ErrNotAParticipant, err)

	_, err = db.GetOtherParticipant(uuid.New(), alice.ID)
	assert.Equal(t, ErrConversationNotFound, err)
}

// TestSetConversationActive tests closing and reopening a conversation
func TestSetConversationActive(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	conv, _, err := db.GetOrCreateConversation(alice.ID, bob.ID, nil)
	assert.NoError(t, err)

	err = db.SetConversationActive(conv.ID, false)
	assert.NoError(t, err)

	loaded, err := db.GetConversationByID(conv.ID)
	assert.NoError(t, err)
	assert.False(t, loaded.IsActive)

	err = db.SetConversationActive(conv.ID, true)
	assert.NoError(t, err)

	loaded, err = db.GetConversationByID(conv.ID)
	assert.NoError(t, err)
	assert.True(t, loaded.IsActive)

	err = db.SetConversationActive(uuid.New(), false)
	assert.Equal(t, ErrConversationNotFound, err)
}

// TestParticipantFlags tests the per-user mute/archive/block settings
func TestParticipantFlags(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	mallory := createTestUser(t, db, "mallory")

	conv, _, err := db.GetOrCreateConversation(alice.ID, bob.ID, nil)
	assert.NoError(t, err)

	t.Run("flags start cleared", func(t *testing.T) {
		p, err := db.GetParticipant(conv.ID, alice.ID)
		assert.NoError(t, err)
		assert.False(t, p.IsMuted)
		assert.False(t, p.IsArchived)
		assert.False(t, p.IsBlocked)
		assert.Nil(t, p.LastReadAt)
	})

	t.Run("flags only affect the caller's row", func(t *testing.T) {
		assert.NoError(t, db.MuteConversation(conv.ID, alice.ID, true))
		assert.NoError(t, db.ArchiveConversation(conv.ID, alice.ID, true))
		assert.NoError(t, db.BlockConversation(conv.ID, alice.ID, true))

		p, err := db.GetParticipant(conv.ID, alice.ID)
		assert.NoError(t, err)
		assert.True(t, p.IsMuted)
		assert.True(t, p.IsArchived)
		assert.True(t, p.IsBlocked)

		// Bob's row is untouched
		p, err = db.GetParticipant(conv.ID, bob.ID)
		assert.NoError(t, err)
		assert.False(t, p.IsMuted)
		assert.False(t, p.IsArchived)
		assert.False(t, p.IsBlocked)
	})

	t.Run("flags can be cleared again", func(t *testing.T) {
		assert.NoError(t, db.MuteConversation(conv.ID, alice.ID, false))

		p, err := db.GetParticipant(conv.ID, alice.ID)
		assert.NoError(t, err)
		assert.False(t, p.IsMuted)
	})

	t.Run("non-participants are rejected", func(t *testing.T) {
		err := db.MuteConversation(conv.ID, mallory.ID, true)
		assert.Equal(t, ErrNotAParticipant, err)

		_, err = db.GetParticipant(conv.ID, mallory.ID)
		assert.Equal(t, ErrNotAParticipant, err)
	})
}
