package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// StatsReporter writes final placements to the leaderboard table. One row
// per player per match; a replayed settlement overwrites instead of
// duplicating.
type StatsReporter struct {
	db *sqlx.DB
}

func NewStatsReporter(db *sqlx.DB) *StatsReporter {
	return &StatsReporter{db: db}
}

func (r *StatsReporter) ReportResult(ctx context.Context, lobbyID, playerID uuid.UUID, rank int, prize *float64, warsPoints float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leaderboard (player_id, lobby_id, rank, prize, wars_point)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (player_id, lobby_id)
		DO UPDATE SET rank = EXCLUDED.rank, prize = EXCLUDED.prize, wars_point = EXCLUDED.wars_point`,
		playerID, lobbyID, rank, prize, warsPoints)
	return err
}

// LeaderboardEntry is one aggregated row of the all-time leaderboard.
type LeaderboardEntry struct {
	PlayerID   uuid.UUID `db:"player_id" json:"playerId"`
	Matches    int       `db:"matches" json:"matches"`
	Wins       int       `db:"wins" json:"wins"`
	WarsPoints float64   `db:"wars_points" json:"warsPoints"`
}

// TopPlayers returns the highest scoring players across all matches.
func (r *StatsReporter) TopPlayers(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT player_id,
		       COUNT(*) AS matches,
		       COUNT(*) FILTER (WHERE rank = 1) AS wins,
		       COALESCE(SUM(wars_point), 0) AS wars_points
		FROM leaderboard
		GROUP BY player_id
		ORDER BY wars_points DESC
		LIMIT $1`, limit)
	return entries, err
}
