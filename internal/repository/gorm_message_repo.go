package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	model := domain.MessageToModel(msg)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Uint(log.FieldRoomID, msg.ChatroomID).Msg("failed to create message in db")
		return err
	}

	msg.ID = model.ID
	msg.CreatedAt = model.CreatedAt
	return nil
}

func (r *GormMessageRepository) GetByID(ctx context.Context, id uint) (*domain.Message, error) {
	var model domain.MessageModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormMessageRepository) List(ctx context.Context) ([]domain.Message, error) {
	return r.find(ctx, r.db.WithContext(ctx))
}

func (r *GormMessageRepository) ListByChatroom(ctx context.Context, chatroomID uint) ([]domain.Message, error) {
	return r.find(ctx, r.db.WithContext(ctx).Where(map[string]interface{}{"chatroomId": chatroomID}))
}

func (r *GormMessageRepository) find(ctx context.Context, query *gorm.DB) ([]domain.Message, error) {
	var models []domain.MessageModel
	if err := query.Order("id ASC").Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list messages from db")
		return nil, err
	}

	msgs := make([]domain.Message, len(models))
	for i, model := range models {
		msgs[i] = *model.ToDomain()
	}
	return msgs, nil
}

func (r *GormMessageRepository) UpdateText(ctx context.Context, id uint, text string) (*domain.Message, error) {
	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).Where("id = ?", id).Update("message", text)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Same-value updates report zero rows on MySQL; tell the two apart.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *GormMessageRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&domain.MessageModel{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
