package competitionmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating events and teams tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS events (
					id UUID PRIMARY KEY,
					name VARCHAR(200) NOT NULL,
					state VARCHAR(32) NOT NULL DEFAULT 'TEAM_FINDING',
					current_round INTEGER NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_events_state ON events(state);
			`); err != nil {
				return fmt.Errorf("failed to create events table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS teams (
					id UUID PRIMARY KEY,
					event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
					name VARCHAR(200) NOT NULL,
					repo TEXT,
					locked BOOLEAN NOT NULL DEFAULT FALSE,
					score INTEGER NOT NULL DEFAULT 0,
					buchholz_points INTEGER NOT NULL DEFAULT 0,
					queue_score INTEGER NOT NULL DEFAULT 1000,
					in_queue BOOLEAN NOT NULL DEFAULT FALSE,
					had_bye BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (event_id, name)
				);
				CREATE INDEX IF NOT EXISTS idx_teams_event_id ON teams(event_id);
				CREATE INDEX IF NOT EXISTS idx_teams_event_queue ON teams(event_id) WHERE in_queue;
			`); err != nil {
				return fmt.Errorf("failed to create teams table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping events and teams tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS teams;`); err != nil {
				return fmt.Errorf("failed to drop teams table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS events;`); err != nil {
				return fmt.Errorf("failed to drop events table: %w", err)
			}
			return nil
		})
	})
}
