package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/cache"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/repository"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidRoomName = errors.New("room name must not be empty")
)

const roomListFlightKey = "rooms"

// RoomService is the room registry: CRUD over the repository with a
// cached, coalesced room list.
type RoomService struct {
	repo  repository.RoomRepository
	cache cache.RoomCache // nil disables caching
	ttl   time.Duration
	group singleflight.Group

	// mu orders cache writes against invalidations. A load only writes the
	// cache when generation has not moved since it started.
	mu         sync.Mutex
	generation uint64
}

func NewRoomService(repo repository.RoomRepository, roomCache cache.RoomCache, ttl time.Duration) *RoomService {
	return &RoomService{
		repo:  repo,
		cache: roomCache,
		ttl:   ttl,
	}
}

// ListRooms returns every room ordered by id.
func (s *RoomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	l := log.Ctx(ctx)

	if s.cache != nil {
		cached, err := s.cache.GetRooms(ctx)
		if err == nil {
			return cached.Rooms, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.Warn().Err(err).Msg("room cache read failed, falling back to db")
		}
	}

	v, err, _ := s.group.Do(roomListFlightKey, func() (interface{}, error) {
		gen := s.currentGeneration()
		rooms, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		s.storeList(ctx, gen, rooms)
		return rooms, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers sharing a flight get the same backing array.
	shared := v.([]domain.Room)
	rooms := make([]domain.Room, len(shared))
	copy(rooms, shared)
	return rooms, nil
}

// ListRoomsFresh reads the room list straight from the repository.
func (s *RoomService) ListRoomsFresh(ctx context.Context) ([]domain.Room, error) {
	return s.repo.List(ctx)
}

func (s *RoomService) CountRooms(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *RoomService) GetRoom(ctx context.Context, id uint) (*domain.Room, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// CreateRoom stores a new room. A nil icon becomes the default icon.
func (s *RoomService) CreateRoom(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidRoomName
	}

	icon := req.Icon
	if icon == nil {
		def := domain.DefaultRoomIcon
		icon = &def
	}

	room := &domain.Room{
		Name:        name,
		Description: req.Description,
		Icon:        icon,
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return room, nil
}

func (s *RoomService) UpdateRoom(ctx context.Context, id uint, req *domain.UpdateRoomRequest) (*domain.Room, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, ErrInvalidRoomName
	}

	room, err := s.repo.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	s.invalidate(ctx)
	return room, nil
}

// DeleteRoom reports whether a room was removed.
func (s *RoomService) DeleteRoom(ctx context.Context, id uint) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.invalidate(ctx)
	}
	return deleted, nil
}

func (s *RoomService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *RoomService) storeList(ctx context.Context, gen uint64, rooms []domain.Room) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l := log.Ctx(ctx)
	if gen != s.generation {
		l.Debug().Msg("room list changed during load, cache write skipped")
		return
	}
	if err := s.cache.SetRooms(ctx, &cache.RoomListResult{Rooms: rooms}, s.ttl); err != nil {
		l.Warn().Err(err).Msg("failed to write room cache")
	}
}

// invalidate drops the cached list and detaches any in-flight load so later
// callers read the repository again.
func (s *RoomService) invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.group.Forget(roomListFlightKey)
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("failed to invalidate room cache")
	}
}
