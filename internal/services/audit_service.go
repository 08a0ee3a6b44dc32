package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"caudal/internal/logger"
	"caudal/internal/models"
)

// auditService records who changed what. Failures are logged and swallowed
// so audit problems never break the operation being audited.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log writes one audit entry.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	var changesJSON string
	if changes != nil {
		b, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Warnw("audit: failed to encode changes",
				"action", action,
				"resource_type", resourceType,
				"error", err.Error(),
			)
		} else {
			changesJSON = string(b)
		}
	}

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("audit: failed to write entry",
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
			"error", err.Error(),
		)
	}
}
