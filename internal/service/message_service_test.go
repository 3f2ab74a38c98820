package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/config"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/repository"
)

func gatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{PersistTimeout: time.Second}
}

func TestMessageService_CRUD(t *testing.T) {
	svc := NewMessageService(repository.NewGormMessageRepository(setupTestDB(t)))
	ctx := context.Background()

	a, err := svc.CreateMessage(ctx, &domain.CreateMessageRequest{ChatroomID: 1, Username: "Person1", Message: "hi"})
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	_, err = svc.AppendMessage(ctx, 2, "Person2", "yo")
	require.NoError(t, err)

	all, err := svc.ListMessages(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	room := uint(1)
	inRoom, err := svc.ListMessages(ctx, &room)
	require.NoError(t, err)
	require.Len(t, inRoom, 1)
	assert.Equal(t, "hi", inRoom[0].Message)

	text := "edited"
	updated, err := svc.UpdateMessage(ctx, a.ID, &domain.UpdateMessageRequest{Message: &text})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Message)

	same, err := svc.UpdateMessage(ctx, a.ID, &domain.UpdateMessageRequest{})
	require.NoError(t, err)
	assert.Equal(t, "edited", same.Message)

	deleted, err := svc.DeleteMessage(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.GetMessage(ctx, a.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
	_, err = svc.UpdateMessage(ctx, a.ID, &domain.UpdateMessageRequest{Message: &text})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestGatewayPersistsThroughMessageService(t *testing.T) {
	messages := NewMessageService(repository.NewGormMessageRepository(setupTestDB(t)))
	gw := NewGateway(newFakeRegistry("General"), messages, &fakeBroadcaster{}, gatewayConfig())
	ctx := context.Background()

	c := newFakeConn("c")
	require.NoError(t, gw.HandleConnect(ctx, c))
	require.NoError(t, gw.HandleSendMessage(ctx, c, "hello", 1))
	require.NoError(t, gw.Stop(ctx))

	room := uint(1)
	stored, err := messages.ListMessages(ctx, &room)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Person1", stored[0].Username)
	assert.Equal(t, "hello", stored[0].Message)
	assert.False(t, stored[0].CreatedAt.IsZero())
}
