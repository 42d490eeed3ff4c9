package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertAuditLog = `
INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, insertAuditLog,
		arg.EntityType,
		arg.EntityID,
		nullableUUID(arg.ActorID),
		arg.Action,
		textOrNull(arg.PrevState),
		textOrNull(arg.NextState),
		arg.Metadata,
	)
	return translate(err, "insert audit log")
}

func textOrNull(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
