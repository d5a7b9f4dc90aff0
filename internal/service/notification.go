package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vitalstack/formula-backend/internal/models"
)

// NotificationService writes in-app notifications. Delivery is best-effort:
// failures are logged and never propagated to the mutation that triggered
// them.
type NotificationService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewNotificationService(db *gorm.DB, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		db:     db,
		logger: logger,
	}
}

// NotifyFormulaUpdate records a formula_update notification for the user.
func (s *NotificationService) NotifyFormulaUpdate(ctx context.Context, userID uuid.UUID, title, content, actionLink string) {
	notification := models.Notification{
		UserID:     userID,
		Type:       models.NotificationTypeFormulaUpdate,
		Title:      title,
		Content:    content,
		ActionLink: actionLink,
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		s.logger.Warn("failed to record notification",
			zap.String("user_id", userID.String()),
			zap.String("title", title),
			zap.Error(err))
	}
}

// ListNotifications returns the user's notifications, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead stamps a notification as read. Ownership is enforced in the
// query itself.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read_at", &now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
