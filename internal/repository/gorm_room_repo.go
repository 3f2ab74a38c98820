package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
)

// GormRoomRepository implements RoomRepository using GORM.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GORM-based room repository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// Create inserts a room and fills in its generated id.
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	l := log.Ctx(ctx)

	model := domain.RoomToModel(room)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Str("name", room.Name).Msg("failed to create room in db")
		return err
	}

	room.ID = model.ID
	l.Debug().Uint(log.FieldRoomID, room.ID).Msg("room created in db")
	return nil
}

// GetByID retrieves a room by ID.
func (r *GormRoomRepository) GetByID(ctx context.Context, id uint) (*domain.Room, error) {
	var model domain.RoomModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Uint(log.FieldRoomID, id).Msg("failed to get room by id")
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns every room ordered by id.
func (r *GormRoomRepository) List(ctx context.Context) ([]domain.Room, error) {
	var models []domain.RoomModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list rooms from db")
		return nil, err
	}

	rooms := make([]domain.Room, len(models))
	for i, model := range models {
		rooms[i] = *model.ToDomain()
	}
	return rooms, nil
}

// Count returns the number of rooms.
func (r *GormRoomRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RoomModel{}).Count(&count).Error
	return count, err
}

// Update applies the non-nil fields of req.
func (r *GormRoomRepository) Update(ctx context.Context, id uint, req *domain.UpdateRoomRequest) (*domain.Room, error) {
	l := log.Ctx(ctx)

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.RoomModel
		if err := tx.First(&model, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&model).Updates(updates).Error
	})
	if err != nil {
		if !errors.Is(err, ErrRoomNotFound) {
			l.Error().Err(err).Uint(log.FieldRoomID, id).Msg("failed to update room in db")
		}
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// Delete removes a room. It reports whether a row was deleted.
func (r *GormRoomRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&domain.RoomModel{}, id)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Uint(log.FieldRoomID, id).Msg("failed to delete room in db")
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
