package services

import (
	"testing"

	"chatify/domain"
	"chatify/errors"

	"github.com/stretchr/testify/require"
)

func TestMessageService_PostMessage_Fans_Out_With_Push_Fallback(t *testing.T) {
	req := require.New(t)
	h, cleanup := newHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	carol := h.seedUser(t, "Carol")
	group := h.seedGroup(t, "Weekend Trip", alice, bob, carol)

	// Given carol registered a device token
	req.NoError(h.users.SetFCMToken(carol.ID, "carol-fcm-token"))

	// When alice posts a message
	msg, err := h.messages.PostMessage(alice.ID, group.ID, "hello everyone", domain.MessageText, "")
	req.NoError(err)
	req.Equal(alice.ID, msg.SenderID)
	req.NotNil(msg.Sender)
	req.Equal("Alice", msg.Sender.FirstName)
	req.Contains(msg.ReadBy, alice.ID)

	// Then every member is a recipient, sender included
	fo, ok := h.deliver.lastFanout()
	req.True(ok)
	req.Equal("message_received", fo.event.Name())
	req.Len(fo.recipients, 3)

	// And only carol, offline with a token, gets a push fallback
	for _, rec := range fo.recipients {
		switch rec.UserID {
		case carol.ID:
			req.NotNil(rec.Push)
			req.Equal("carol-fcm-token", rec.Push.Token)
			req.Equal("Alice", rec.Push.Title)
			req.Equal("hello everyone", rec.Push.Body)
		default:
			req.Nil(rec.Push)
		}
	}
}

func TestMessageService_PostMessage_Muted_Member_Gets_No_Push(t *testing.T) {
	req := require.New(t)
	h, cleanup := newHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	group := h.seedGroup(t, "Ops", alice, bob)

	req.NoError(h.users.SetFCMToken(bob.ID, "bob-fcm-token"))
	_, err := h.chats.ToggleMute(bob.ID, group.ID)
	req.NoError(err)

	_, err = h.messages.PostMessage(alice.ID, group.ID, "ping", domain.MessageText, "")
	req.NoError(err)

	// The muted member is still a recipient but without push fallback
	fo, ok := h.deliver.lastFanout()
	req.True(ok)
	for _, rec := range fo.recipients {
		req.Nil(rec.Push)
	}
}

func TestMessageService_PostMessage_Media_Push_Body(t *testing.T) {
	req := require.New(t)
	h, cleanup := newHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	group := h.seedGroup(t, "Ops", alice, bob)
	req.NoError(h.users.SetFCMToken(bob.ID, "bob-fcm-token"))

	_, err := h.messages.PostMessage(alice.ID, group.ID, "https://cdn.example.com/pic.jpg", domain.MessageImage, "")
	req.NoError(err)

	fo, _ := h.deliver.lastFanout()
	for _, rec := range fo.recipients {
		if rec.UserID == bob.ID {
			req.NotNil(rec.Push)
			req.Equal("Sent a photo", rec.Push.Body)
		}
	}
}

func TestMessageService_PostMessage_Validation(t *testing.T) {
	req := require.New(t)
	h, cleanup := newHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	mallory := h.seedUser(t, "Mallory")
	group := h.seedGroup(t, "Ops", alice, bob)

	// Empty content
	_, err := h.messages.PostMessage(alice.ID, group.ID, "   ", domain.MessageText, "")
	req.ErrorIs(err, errors.ErrValidation)

	// The system type is reserved
	_, err = h.messages.PostMessage(alice.ID, group.ID, "hi", domain.MessageSystem, "")
	req.ErrorIs(err, errors.ErrValidation)

	// Non-members cannot post
	_, err = h.messages.PostMessage(mallory.ID, group.ID, "hi", domain.MessageText, "")
	req.ErrorIs(err, errors.ErrNotMember)
}

func TestMessageService_OnlyAdminsPost(t *testing.T) {
	req := require.New(t)
	h, cleanup := newHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	group := h.seedGroup(t, "Announcements", alice, bob)
	_, err := h.chats.UpdateGroupSettings(alice.ID, group.ID, domain.GroupSettings{OnlyAdminsPost: true})
	req.NoError(err)

	// A plain member is rejected
	_, err = h.messages.PostMessage(bob.ID, group.ID, "hi", domain.MessageText, "")
	req.ErrorIs(err, errors.ErrAdminsOnly)

	// The admin still posts
	_, err = h.messages.PostMessage(alice.ID, group.ID, "welcome", domain.MessageText, "")
	req.NoError(err)
}

func TestMessageService_Reply_Must_Stay_In_The_Chat(t *testing.T) {
	req := require.New(t)
	h, cleanup := newHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	groupA := h.seedGroup(t, "A", alice, bob)
	groupB := h.seedGroup(t, "B", alice, bob)

	parent, err := h.messages.PostMessage(alice.ID, groupA.ID, "original", domain.MessageText, "")
	req.NoError(err)

	// Replying from another chat is rejected
	_, err = h.messages.PostMessage(bob.ID, groupB.ID, "reply", domain.MessageText, parent.ID)
	req.ErrorIs(err, errors.ErrValidation)

	// Replying in the same chat resolves the parent
	reply, err := h.messages.PostMessage(bob.ID, groupA.ID, "reply", domain.MessageText, parent.ID)
	req.NoError(err)
	req.NotNil(reply.ReplyContext)
	req.Equal("original", reply.ReplyContext.Content)
}

func TestMessageService_Reaction_Toggle_Parity(t *testing.T) {
	req := require.New(t)
	h, cleanup := newHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	group := h.seedGroup(t, "Ops", alice, bob)
	msg, err := h.messages.PostMessage(alice.ID, group.ID, "react to me", domain.MessageText, "")
	req.NoError(err)

	// Two toggles cancel out
	got, err := h.messages.ReactToMessage(bob.ID, msg.ID, "👍")
	req.NoError(err)
	req.Len(got.Reactions, 1)

	got, err = h.messages.ReactToMessage(bob.ID, msg.ID, "👍")
	req.NoError(err)
	req.Empty(got.Reactions)

	// Three toggles leave the reaction in place
	_, err = h.messages.ReactToMessage(bob.ID, msg.ID, "❤️")
	req.NoError(err)
	_, err = h.messages.ReactToMessage(bob.ID, msg.ID, "❤️")
	req.NoError(err)
	got, err = h.messages.ReactToMessage(bob.ID, msg.ID, "❤️")
	req.NoError(err)
	req.Len(got.Reactions, 1)
	req.Equal("❤️", got.Reactions[0].Emoji)

	// Distinct emojis from one user coexist
	got, err = h.messages.ReactToMessage(bob.ID, msg.ID, "🎉")
	req.NoError(err)
	req.Len(got.Reactions, 2)

	// An empty emoji is rejected
	_, err = h.messages.ReactToMessage(bob.ID, msg.ID, "")
	req.ErrorIs(err, errors.ErrValidation)
}

func TestMessageService_SoftDelete_Is_Sender_Only(t *testing.T) {
	req := require.New(t)
	h, cleanup := newHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	group := h.seedGroup(t, "Ops", alice, bob)
	msg, err := h.messages.PostMessage(alice.ID, group.ID, "delete me", domain.MessageText, "")
	req.NoError(err)

	_, err = h.messages.SoftDeleteMessage(bob.ID, msg.ID)
	req.ErrorIs(err, errors.ErrNotSender)

	deleted, err := h.messages.SoftDeleteMessage(alice.ID, msg.ID)
	req.NoError(err)
	req.True(deleted.IsDeleted)

	// The content survives server-side for the remaining readers
	req.Equal("delete me", deleted.Content)
}

func TestMessageService_MarkRead(t *testing.T) {
	req := require.New(t)
	h, cleanup := newHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	mallory := h.seedUser(t, "Mallory")
	group := h.seedGroup(t, "Ops", alice, bob)
	msg, err := h.messages.PostMessage(alice.ID, group.ID, "read me", domain.MessageText, "")
	req.NoError(err)

	req.NoError(h.messages.MarkRead(bob.ID, msg.ID))
	req.NoError(h.messages.MarkRead(bob.ID, msg.ID))

	messages, _, err := h.messages.ListMessages(bob.ID, group.ID, nil)
	req.NoError(err)
	req.ElementsMatch([]string{alice.ID, bob.ID}, messages[0].ReadBy)

	// Outsiders cannot mark anything
	req.ErrorIs(h.messages.MarkRead(mallory.ID, msg.ID), errors.ErrNotMember)
}

func TestMessageService_ListMessages_Resolves_Senders(t *testing.T) {
	req := require.New(t)
	h, cleanup := newHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	group := h.seedGroup(t, "Ops", alice, bob)

	_, err := h.messages.PostMessage(alice.ID, group.ID, "first", domain.MessageText, "")
	req.NoError(err)
	_, err = h.messages.PostMessage(bob.ID, group.ID, "second", domain.MessageText, "")
	req.NoError(err)

	messages, _, err := h.messages.ListMessages(alice.ID, group.ID, nil)
	req.NoError(err)

	// Newest first, system creation message last, senders resolved
	req.Equal("second", messages[0].Content)
	req.Equal("Bob", messages[0].Sender.FirstName)
	req.Equal("first", messages[1].Content)
	req.Equal("Alice", messages[1].Sender.FirstName)

	last := messages[len(messages)-1]
	req.True(last.IsSystem())
	req.Nil(last.Sender)
}

func TestSystemMessenger_Empty_Announcement_Is_Silent(t *testing.T) {
	req := require.New(t)
	h, cleanup := newHarness(t)
	defer cleanup()

	alice := h.seedUser(t, "Alice")
	bob := h.seedUser(t, "Bob")
	group := h.seedGroup(t, "Ops", alice, bob)
	before := len(h.deliver.fanouts)

	// Updating info announces nothing
	_, err := h.chats.UpdateGroupInfo(alice.ID, group.ID, "A fresh description", "")
	req.NoError(err)
	req.Len(h.deliver.fanouts, before)
}
