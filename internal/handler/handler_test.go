package handler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/config"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/repository"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/service"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		LogLevel:     "silent",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, repository.Models()...))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

type services struct {
	rooms    *service.RoomService
	messages *service.MessageService
	gateway  *service.Gateway
}

// newServices wires the gateway over sqlite and seeds the default rooms.
func newServices(t *testing.T, broadcaster service.Broadcaster) *services {
	t.Helper()
	db := setupTestDB(t)
	s := &services{
		rooms:    service.NewRoomService(repository.NewGormRoomRepository(db), nil, 0),
		messages: service.NewMessageService(repository.NewGormMessageRepository(db)),
	}
	s.gateway = service.NewGateway(s.rooms, s.messages, broadcaster, config.GatewayConfig{
		PersistTimeout: time.Second,
		DefaultRooms:   true,
	})
	require.NoError(t, s.gateway.Start(context.Background()))
	t.Cleanup(func() { _ = s.gateway.Stop(context.Background()) })
	return s
}
