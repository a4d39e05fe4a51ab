package remotestore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS workout (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	workout_date TIMESTAMPTZ NOT NULL,
	bodyweight DOUBLE PRECISION NOT NULL,
	exercises JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ,
	synced_at TIMESTAMPTZ,
	migrated_from_local BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS workout_user_date_idx ON workout (user_id, workout_date DESC);
`

// ApplySchema creates the workout table if missing. Ran at server startup.
func ApplySchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply workout schema: %w", err)
	}
	return nil
}
