package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"gorm.io/gorm"
)

// History is the persisted audit trail of ledger operations.
type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"index;not null" json:"business_id"`
	ActionType    string    `gorm:"size:20;not null" json:"action_type"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceID   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:255" json:"reference_type"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	UserId        int       `gorm:"index" json:"user_id"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func historyFromEvent(event AuditEvent) History {
	return History{
		BusinessId:    event.BusinessId,
		ActionType:    string(event.Action),
		Description:   event.Description,
		ReferenceID:   event.EntityId,
		ReferenceType: event.EntityType,
		UserName:      event.Actor,
		UserId:        event.UserId,
		CorrelationId: event.CorrelationId,
		CreatedAt:     event.OccurredAt,
	}
}

// HistoryAuditNotifier writes audit events to the histories table.
type HistoryAuditNotifier struct {
	db *gorm.DB
}

func NewHistoryAuditNotifier(db *gorm.DB) *HistoryAuditNotifier {
	return &HistoryAuditNotifier{db: db}
}

func (n *HistoryAuditNotifier) Notify(ctx context.Context, event AuditEvent) error {
	history := historyFromEvent(event)
	return n.db.WithContext(ctx).Create(&history).Error
}

func GetHistories(ctx context.Context, db *gorm.DB, referenceType string, referenceId int) ([]*History, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, utils.ErrorBusinessIdRequired
	}

	var results []*History
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if referenceType != "" {
		dbCtx = dbCtx.Where("reference_type = ?", referenceType)
	}
	if referenceId > 0 {
		dbCtx = dbCtx.Where("reference_id = ?", referenceId)
	}
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
