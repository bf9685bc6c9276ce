package service

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochat/internal/chat"
	"gochat/internal/chat/guard"
	"gochat/internal/chat/models"
	"gochat/internal/chat/repository"
	"gochat/internal/chat/repository/mocks"
	"gochat/internal/common"
)

func TestSend_FreshDirectConversation(t *testing.T) {
	f := newFixture(t, guard.Policy{})
	ctx := context.Background()

	view, err := f.messages.Send(ctx, SendInput{RecipientID: "bob", SenderID: "alice", Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "hello", view.Text)
	assert.Equal(t, models.StatusSent, view.Status)
	assert.Equal(t, common.UserProjection{ID: "alice", Username: "alice-name", Avatar: "/media/alice"}, view.Sender)
	assert.NotNil(t, view.Attachments)
	assert.NotNil(t, view.Reactions)

	conv, err := f.convs.Get(ctx, view.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "hello", conv.LastMessage)
	assert.Equal(t, view.Timestamp, conv.LastMessageTime)

	events := f.publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, chat.EventMessageNew, events[0].Event)
	assert.Equal(t, view.ConversationID, events[0].ConversationID)
	payload, ok := events[0].Payload.(*models.MessageView)
	require.True(t, ok)
	assert.Equal(t, "alice-name", payload.Sender.Username)

	// the second send reuses the same direct conversation
	again, err := f.messages.Send(ctx, SendInput{RecipientID: "alice", SenderID: "bob", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, view.ConversationID, again.ConversationID)
}

func TestSend_AttachmentOnlyPreview(t *testing.T) {
	f := newFixture(t, guard.Policy{})
	ctx := context.Background()
	conv := f.direct(t, "alice", "bob")

	_, err := f.messages.Send(ctx, SendInput{
		ConversationID: conv.ID,
		SenderID:       "alice",
		Attachments:    []models.Attachment{{Kind: common.AttachmentKindImage, URL: "/media/f1", Name: "cat.png"}},
	})
	require.NoError(t, err)

	stored, err := f.convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sent an attachment", stored.LastMessage)
}

func TestSend_Rejections(t *testing.T) {
	f := newFixture(t, guard.Policy{})
	ctx := context.Background()
	conv := f.direct(t, "alice", "bob")

	tests := []struct {
		name    string
		in      SendInput
		wantErr error
	}{
		{name: "empty message", in: SendInput{ConversationID: conv.ID, SenderID: "alice", Text: "  "}, wantErr: common.ErrValidation},
		{name: "no address", in: SendInput{SenderID: "alice", Text: "x"}, wantErr: common.ErrValidation},
		{
			name:    "attachment without url",
			in:      SendInput{ConversationID: conv.ID, SenderID: "alice", Attachments: []models.Attachment{{Kind: common.AttachmentKindFile}}},
			wantErr: common.ErrValidation,
		},
		{
			name:    "attachment with unknown kind",
			in:      SendInput{ConversationID: conv.ID, SenderID: "alice", Attachments: []models.Attachment{{Kind: "video", URL: "/media/x"}}},
			wantErr: common.ErrValidation,
		},
		{name: "not a participant", in: SendInput{ConversationID: conv.ID, SenderID: "carol", Text: "x"}, wantErr: common.ErrForbidden},
		{name: "unknown conversation", in: SendInput{ConversationID: "nope", SenderID: "alice", Text: "x"}, wantErr: common.ErrNotFound},
		{name: "message to self", in: SendInput{RecipientID: "alice", SenderID: "alice", Text: "x"}, wantErr: common.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Send(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, f.publisher.all())
}

func TestSend_StoreFailureDoesNotPublish(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	msgRepo := mocks.NewMockMessageRepository(ctrl)
	convRepo := mocks.NewMockConversationRepository(ctrl)
	resolver := newFakeResolver("alice", "bob")
	g := guard.New(guard.Policy{})
	pub := &recordingPublisher{}

	convs := NewConversationService(convRepo, resolver, g, nil, zerolog.Nop())
	svc := NewMessageService(msgRepo, convs, g, NewProjector(resolver), pub, zerolog.Nop())

	convRepo.EXPECT().GetByID(gomock.Any(), "c1").Return(&models.Conversation{ID: "c1", Participants: []string{"alice", "bob"}}, nil)
	msgRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errBoom)

	_, err := svc.Send(context.Background(), SendInput{ConversationID: "c1", SenderID: "alice", Text: "hi"})

	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, pub.all())
}

func TestEdit(t *testing.T) {
	f := newFixture(t, guard.Policy{})
	ctx := context.Background()
	conv := f.direct(t, "alice", "bob")
	sent := f.send(t, conv.ID, "alice", "helo")

	_, err := f.messages.Edit(ctx, sent.ID, "bob", "hacked")
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.messages.Edit(ctx, sent.ID, "alice", "")
	assert.ErrorIs(t, err, common.ErrValidation)

	// rejected edits leave the stored message untouched
	stored, err := f.store.Messages().GetByID(ctx, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, "helo", stored.Text)
	assert.False(t, stored.Edited)
	assert.Nil(t, stored.EditedAt)
	assert.Len(t, f.publisher.all(), 1)

	edited, err := f.messages.Edit(ctx, sent.ID, "alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", edited.Text)
	assert.True(t, edited.Edited)
	require.NotNil(t, edited.EditedAt)

	_, err = f.messages.Edit(ctx, "missing", "alice", "x")
	assert.ErrorIs(t, err, common.ErrNotFound)

	events := f.publisher.all()
	last := events[len(events)-1]
	assert.Equal(t, chat.EventMessageUpdated, last.Event)
	assert.Equal(t, "hello", last.Payload.(*models.MessageView).Text)
}

func TestEdit_EmptyTextAllowedWithAttachments(t *testing.T) {
	f := newFixture(t, guard.Policy{})
	ctx := context.Background()
	conv := f.direct(t, "alice", "bob")
	sent, err := f.messages.Send(ctx, SendInput{
		ConversationID: conv.ID,
		SenderID:       "alice",
		Text:           "caption",
		Attachments:    []models.Attachment{{Kind: common.AttachmentKindFile, URL: "/media/doc", Name: "doc.pdf"}},
	})
	require.NoError(t, err)

	edited, err := f.messages.Edit(ctx, sent.ID, "alice", "")
	require.NoError(t, err)
	assert.Empty(t, edited.Text)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, guard.Policy{})
	ctx := context.Background()
	conv := f.direct(t, "alice", "bob")
	sent := f.send(t, conv.ID, "alice", "oops")

	assert.ErrorIs(t, f.messages.Delete(ctx, sent.ID, "bob"), common.ErrForbidden)
	require.NoError(t, f.messages.Delete(ctx, sent.ID, "alice"))
	assert.ErrorIs(t, f.messages.Delete(ctx, sent.ID, "alice"), common.ErrNotFound)

	events := f.publisher.all()
	last := events[len(events)-1]
	assert.Equal(t, chat.EventMessageDeleted, last.Event)
	assert.Equal(t, chat.DeletedPayload{ID: sent.ID, ConversationID: conv.ID}, last.Payload)

	list, err := f.queries.ListMessages(ctx, conv.ID, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReact_ToggleIsItsOwnInverse(t *testing.T) {
	f := newFixture(t, guard.Policy{})
	ctx := context.Background()
	conv := f.direct(t, "alice", "bob")
	sent := f.send(t, conv.ID, "alice", "hi")

	on, err := f.messages.React(ctx, sent.ID, "bob", "👍")
	require.NoError(t, err)
	require.Len(t, on.Reactions, 1)
	assert.Equal(t, "👍", on.Reactions[0].Emoji)
	assert.Equal(t, "bob-name", on.Reactions[0].User.Username)

	off, err := f.messages.React(ctx, sent.ID, "bob", "👍")
	require.NoError(t, err)
	assert.Empty(t, off.Reactions)

	_, err = f.messages.React(ctx, sent.ID, "bob", " ")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestReact_MembershipPolicy(t *testing.T) {
	ctx := context.Background()

	open := newFixture(t, guard.Policy{})
	conv := open.direct(t, "alice", "bob")
	sent := open.send(t, conv.ID, "alice", "hi")
	_, err := open.messages.React(ctx, sent.ID, "carol", "🎉")
	assert.NoError(t, err)

	strict := newFixture(t, guard.Policy{RequireMembershipToReact: true})
	conv = strict.direct(t, "alice", "bob")
	sent = strict.send(t, conv.ID, "alice", "hi")
	_, err = strict.messages.React(ctx, sent.ID, "carol", "🎉")
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestPin_ThenUnpinRestores(t *testing.T) {
	f := newFixture(t, guard.Policy{})
	ctx := context.Background()
	conv := f.direct(t, "alice", "bob")
	sent := f.send(t, conv.ID, "alice", "remember this")

	_, err := f.messages.Pin(ctx, sent.ID, "carol")
	assert.ErrorIs(t, err, common.ErrForbidden)

	pinned, err := f.messages.Pin(ctx, sent.ID, "bob")
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)
	require.NotNil(t, pinned.PinnedAt)
	require.NotNil(t, pinned.PinnedBy)
	assert.Equal(t, "bob", pinned.PinnedBy.ID)

	unpinned, err := f.messages.Pin(ctx, sent.ID, "alice")
	require.NoError(t, err)
	assert.False(t, unpinned.Pinned)
	assert.Nil(t, unpinned.PinnedAt)
	assert.Nil(t, unpinned.PinnedBy)
}

func TestUpdateStatus_ForwardOnly(t *testing.T) {
	f := newFixture(t, guard.Policy{})
	ctx := context.Background()
	conv := f.direct(t, "alice", "bob")
	sent := f.send(t, conv.ID, "alice", "hi")

	_, err := f.messages.UpdateStatus(ctx, sent.ID, "alice", models.StatusRead)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.messages.UpdateStatus(ctx, sent.ID, "carol", models.StatusRead)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.messages.UpdateStatus(ctx, sent.ID, "bob", "seen")
	assert.ErrorIs(t, err, common.ErrValidation)

	read, err := f.messages.UpdateStatus(ctx, sent.ID, "bob", models.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, read.Status)
	published := len(f.publisher.all())

	back, err := f.messages.UpdateStatus(ctx, sent.ID, "bob", models.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, back.Status)
	assert.Len(t, f.publisher.all(), published)
}

func TestForward_CrossProduct(t *testing.T) {
	f := newFixture(t, guard.Policy{})
	ctx := context.Background()
	source := f.direct(t, "alice", "bob")
	m1 := f.send(t, source.ID, "bob", "one")
	m2, err := f.messages.Send(ctx, SendInput{
		ConversationID: source.ID,
		SenderID:       "alice",
		Text:           "two",
		Attachments:    []models.Attachment{{Kind: common.AttachmentKindImage, URL: "/media/p", Name: "p.png"}},
	})
	require.NoError(t, err)

	t1 := f.direct(t, "alice", "carol")
	t2 := f.group(t, "alice", "bob", "dave")
	before := len(f.publisher.all())

	result, err := f.messages.Forward(ctx, ForwardInput{
		MessageIDs:            []string{m1.ID, m2.ID},
		TargetConversationIDs: []string{t1.ID, t2.ID},
		ActorID:               "alice",
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 4)
	assert.Empty(t, result.Failures)

	order := []struct{ conv, original, text string }{
		{t1.ID, m1.ID, "Forwarded: one"},
		{t1.ID, m2.ID, "Forwarded: two"},
		{t2.ID, m1.ID, "Forwarded: one"},
		{t2.ID, m2.ID, "Forwarded: two"},
	}
	for i, want := range order {
		got := result.Messages[i]
		assert.Equal(t, want.conv, got.ConversationID)
		assert.Equal(t, want.original, got.OriginalMessageID)
		assert.Equal(t, want.text, got.Text)
		assert.True(t, got.Forwarded)
		assert.Equal(t, "alice", got.Sender.ID)
	}
	assert.Equal(t, "/media/p", result.Messages[1].Attachments[0].URL)

	for _, id := range []string{t1.ID, t2.ID} {
		conv, err := f.convs.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Forwarded: two", conv.LastMessage)
	}

	events := f.publisher.all()[before:]
	require.Len(t, events, 2)
	for i, id := range []string{t1.ID, t2.ID} {
		assert.Equal(t, chat.EventMessageNew, events[i].Event)
		assert.Equal(t, id, events[i].ConversationID)
		batch, ok := events[i].Payload.([]models.MessageView)
		require.True(t, ok)
		assert.Len(t, batch, 2)
		for _, m := range batch {
			assert.Equal(t, id, m.ConversationID)
		}
	}
}

func TestForward_Preflight(t *testing.T) {
	f := newFixture(t, guard.Policy{})
	ctx := context.Background()
	source := f.direct(t, "alice", "bob")
	m := f.send(t, source.ID, "bob", "secret")
	foreign := f.direct(t, "carol", "dave")
	own := f.direct(t, "carol", "alice")

	tests := []struct {
		name    string
		in      ForwardInput
		wantErr error
	}{
		{name: "no messages", in: ForwardInput{TargetConversationIDs: []string{own.ID}, ActorID: "alice"}, wantErr: common.ErrValidation},
		{name: "no targets", in: ForwardInput{MessageIDs: []string{m.ID}, ActorID: "alice"}, wantErr: common.ErrValidation},
		{name: "unknown message", in: ForwardInput{MessageIDs: []string{"nope"}, TargetConversationIDs: []string{own.ID}, ActorID: "alice"}, wantErr: common.ErrNotFound},
		{name: "target not joined", in: ForwardInput{MessageIDs: []string{m.ID}, TargetConversationIDs: []string{own.ID, foreign.ID}, ActorID: "alice"}, wantErr: common.ErrForbidden},
		{name: "source not readable", in: ForwardInput{MessageIDs: []string{m.ID}, TargetConversationIDs: []string{own.ID}, ActorID: "carol"}, wantErr: common.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Forward(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	msgs, err := f.store.Messages().List(ctx, repository.MessageQuery{ConversationIDs: []string{own.ID}})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestForward_PartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	msgRepo := mocks.NewMockMessageRepository(ctrl)
	store := repository.NewMemoryStore()
	resolver := newFakeResolver("alice", "bob", "carol")
	g := guard.New(guard.Policy{})
	pub := &recordingPublisher{}
	convs := NewConversationService(store.Conversations(), resolver, g, nil, zerolog.Nop())
	svc := NewMessageService(msgRepo, convs, g, NewProjector(resolver), pub, zerolog.Nop())

	ctx := context.Background()
	first, _, err := convs.FindOrCreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	second, _, err := convs.FindOrCreateDirect(ctx, "alice", "carol")
	require.NoError(t, err)
	src := &models.Message{ID: "m1", ConversationID: first.ID, SenderID: "bob", Text: "x"}

	msgRepo.EXPECT().FindByIDs(gomock.Any(), []string{"m1"}).Return([]*models.Message{src}, nil)
	gomock.InOrder(
		msgRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errBoom),
		msgRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil),
	)

	result, err := svc.Forward(ctx, ForwardInput{
		MessageIDs:            []string{"m1", "m1"},
		TargetConversationIDs: []string{first.ID, second.ID},
		ActorID:               "alice",
	})

	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, second.ID, result.Messages[0].ConversationID)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, ForwardFailure{MessageID: "m1", ConversationID: first.ID, Error: errBoom.Error()}, result.Failures[0])

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, second.ID, events[0].ConversationID)

	stored, err := convs.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.LastMessage)
}

func TestForward_NothingCreatedFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	msgRepo := mocks.NewMockMessageRepository(ctrl)
	store := repository.NewMemoryStore()
	resolver := newFakeResolver("alice", "bob")
	g := guard.New(guard.Policy{})
	pub := &recordingPublisher{}
	convs := NewConversationService(store.Conversations(), resolver, g, nil, zerolog.Nop())
	svc := NewMessageService(msgRepo, convs, g, NewProjector(resolver), pub, zerolog.Nop())

	ctx := context.Background()
	target, _, err := convs.FindOrCreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	src := &models.Message{ID: "m1", ConversationID: target.ID, SenderID: "bob", Text: "x"}

	msgRepo.EXPECT().FindByIDs(gomock.Any(), []string{"m1"}).Return([]*models.Message{src}, nil)
	msgRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errBoom)

	_, err = svc.Forward(ctx, ForwardInput{MessageIDs: []string{"m1"}, TargetConversationIDs: []string{target.ID}, ActorID: "alice"})

	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, pub.all())
}
