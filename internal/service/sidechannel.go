package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"kargopay/internal/config"
	"kargopay/internal/model"
	"kargopay/internal/repository"

	"gorm.io/gorm"
)

// SideChannel 审计日志与通知的旁路写入
// 统一走 outbox，由后台任务异步投递；旁路失败只记日志，绝不影响主流程
type SideChannel struct {
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
}

func NewSideChannel(db *gorm.DB, cfg *config.Config) *SideChannel {
	return &SideChannel{
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
	}
}

// WriteAuditLog 审计日志，尽力而为
func (s *SideChannel) WriteAuditLog(ctx context.Context, tx *gorm.DB, userID int64, action, entity, entityID string, metadata map[string]interface{}) {
	payload := map[string]interface{}{
		"user_id":   userID,
		"action":    action,
		"entity":    entity,
		"entity_id": entityID,
		"metadata":  metadata,
		"at":        time.Now().Format(time.RFC3339),
	}
	s.enqueue(ctx, tx, s.cfg.Kafka.Topic.AuditLog, fmt.Sprintf("audit:%s:%s", entity, entityID), payload)
}

// CreateNotification 用户通知，尽力而为
func (s *SideChannel) CreateNotification(ctx context.Context, tx *gorm.DB, userID int64, notifyType, title, message string, metadata map[string]interface{}) {
	payload := map[string]interface{}{
		"user_id":  userID,
		"type":     notifyType,
		"title":    title,
		"message":  message,
		"metadata": metadata,
		"at":       time.Now().Format(time.RFC3339),
	}
	s.enqueue(ctx, tx, s.cfg.Kafka.Topic.Notification, fmt.Sprintf("notify:%d", userID), payload)
}

func (s *SideChannel) enqueue(ctx context.Context, tx *gorm.DB, topic, key string, payload map[string]interface{}) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[SideChannel] 序列化失败: topic=%s, key=%s, err=%v", topic, key, err)
		return
	}

	msg := &model.OutboxMessage{
		MessageKey: key,
		Topic:      topic,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		log.Printf("[SideChannel] 写入 outbox 失败: topic=%s, key=%s, err=%v", topic, key, err)
	}
}
