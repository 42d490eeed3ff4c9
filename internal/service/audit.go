package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayo6706/fcy-position/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Audit entity types.
const (
	auditEntityBalanceEntry = "balance_entry"
	auditEntityTransaction  = "transaction"
	auditEntityCapital      = "capital_record"
	auditEntityBank         = "correspondent_bank"
	auditEntityAlert        = "alert"
)

// AuditService writes immutable audit trail entries.
type AuditService struct{}

func NewAuditService() *AuditService {
	return &AuditService{}
}

// Write stores a single immutable audit record through qtx so that it commits
// or rolls back with the change it describes.
func (s *AuditService) Write(ctx context.Context, qtx repository.Querier, entityType string, entityID uuid.UUID, actorID *uuid.UUID, action, prevState, nextState string, metadata []byte) error {
	if err := qtx.InsertAuditLog(ctx, repository.InsertAuditLogParams{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		PrevState:  textParam(prevState),
		NextState:  textParam(nextState),
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func textParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// auditMetadata marshals v for the audit log; failures degrade to no metadata.
func auditMetadata(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		zap.L().Warn("marshal audit metadata", zap.Error(err))
		return nil
	}
	return b
}
