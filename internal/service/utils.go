package service

import (
	"fmt"
	"strings"

	"github.com/ayo6706/fcy-position/internal/apperrors"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/google/uuid"
)

func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}

func requireActor(actor models.Actor) error {
	if actor.ID == uuid.Nil {
		return fmt.Errorf("%w: actor is required", apperrors.ErrValidation)
	}
	if strings.TrimSpace(actor.Role) == "" {
		return fmt.Errorf("%w: actor role is required", apperrors.ErrValidation)
	}
	return nil
}

func actorRef(actor models.Actor) *uuid.UUID {
	id := actor.ID
	return &id
}
