package postgres

import (
	"context"

	"github.com/google/uuid"
)

// ensureUsers регистрирует пользователей при первом обращении. Учётные записи
// выпускает сервис идентификации, здесь хранятся только их идентификаторы.
func ensureUsers(ctx context.Context, q querier, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
        INSERT INTO users (id)
        SELECT unnest($1::uuid[])
        ON CONFLICT (id) DO NOTHING
    `, ids)
	return mapError(err, "postgres.ensureUsers", "")
}
