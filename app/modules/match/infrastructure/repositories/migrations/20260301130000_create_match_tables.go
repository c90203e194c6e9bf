package matchmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating match tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS matches (
					id UUID PRIMARY KEY,
					event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
					state VARCHAR(16) NOT NULL DEFAULT 'PLANNED',
					phase VARCHAR(16) NOT NULL,
					round INTEGER NOT NULL DEFAULT 0,
					ordinal INTEGER NOT NULL DEFAULT 0,
					winner_id UUID REFERENCES teams(id),
					is_revealed BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT chk_matches_winner_only_when_finished
						CHECK (winner_id IS NULL OR state = 'FINISHED')
				);
				CREATE INDEX IF NOT EXISTS idx_matches_round ON matches(event_id, phase, round, state);
				CREATE INDEX IF NOT EXISTS idx_matches_created ON matches(event_id, created_at, ordinal);
			`); err != nil {
				return fmt.Errorf("failed to create matches table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS match_teams (
					match_id UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
					team_id UUID NOT NULL REFERENCES teams(id),
					position SMALLINT NOT NULL,
					PRIMARY KEY (match_id, team_id),
					UNIQUE (match_id, position)
				);
				CREATE INDEX IF NOT EXISTS idx_match_teams_team_id ON match_teams(team_id);
			`); err != nil {
				return fmt.Errorf("failed to create match_teams table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS match_team_results (
					match_id UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
					team_id UUID NOT NULL REFERENCES teams(id),
					score INTEGER NOT NULL,
					PRIMARY KEY (match_id, team_id)
				);
			`); err != nil {
				return fmt.Errorf("failed to create match_team_results table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS match_stats (
					match_id UUID PRIMARY KEY REFERENCES matches(id) ON DELETE CASCADE,
					actions_executed BIGINT NOT NULL DEFAULT 0,
					damage_deposits BIGINT NOT NULL DEFAULT 0,
					gempiles_destroyed BIGINT NOT NULL DEFAULT 0,
					damage_total BIGINT NOT NULL DEFAULT 0,
					damage_self BIGINT NOT NULL DEFAULT 0,
					damage_opponent BIGINT NOT NULL DEFAULT 0,
					damage_units BIGINT NOT NULL DEFAULT 0,
					damage_cores BIGINT NOT NULL DEFAULT 0,
					damage_walls BIGINT NOT NULL DEFAULT 0,
					units_spawned BIGINT NOT NULL DEFAULT 0,
					units_destroyed BIGINT NOT NULL DEFAULT 0,
					cores_destroyed BIGINT NOT NULL DEFAULT 0,
					walls_destroyed BIGINT NOT NULL DEFAULT 0,
					gems_transferred BIGINT NOT NULL DEFAULT 0,
					tiles_traveled BIGINT NOT NULL DEFAULT 0,
					gems_gained BIGINT NOT NULL DEFAULT 0
				);
			`); err != nil {
				return fmt.Errorf("failed to create match_stats table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping match tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, table := range []string{"match_stats", "match_team_results", "match_teams", "matches"} {
				if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+";"); err != nil {
					return fmt.Errorf("failed to drop %s: %w", table, err)
				}
			}
			return nil
		})
	})
}
