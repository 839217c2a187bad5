package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// statements holds the dialect-specific upserts used by syncBatch.
type statements struct {
	user  string
	entry string
	game  string
}

// syncBatch runs every upsert of batch in one transaction.
func syncBatch(ctx context.Context, db *sql.DB, batch SyncBatch, st statements, now time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	u := batch.User
	if _, err := tx.ExecContext(ctx, st.user, u.Username, u.UserID, u.Name, u.Color, now); err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", u.Username, err)
	}

	entryStmt, err := tx.PrepareContext(ctx, st.entry)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer entryStmt.Close()

	for _, e := range batch.Entries {
		_, err := entryStmt.ExecContext(ctx,
			u.Username, e.CollID, e.ID, e.Name, e.Thumbnail, e.LastModified,
			e.NumPlays, e.Status.Own, e.Status.Wishlist, nullInt(e.Status.WishlistPriority),
			nullString(e.PostDate), nullFloat(e.Rating), nullString(e.RatingTimestamp), now)
		if err != nil {
			return fmt.Errorf("failed to upsert entry %s: %w", e.CollID, err)
		}
	}

	gameStmt, err := tx.PrepareContext(ctx, st.game)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer gameStmt.Close()

	for _, g := range batch.Games {
		_, err := gameStmt.ExecContext(ctx,
			g.ID, g.Name, g.Type, g.MinPlayers, g.MaxPlayers, g.PlayingTime, jsonText(g.BestAtCount),
			g.AverageRating, g.AverageWeight, g.BoardGameRank,
			jsonText(g.Mechanics), jsonText(g.Categories), jsonText(g.Designers), now)
		if err != nil {
			return fmt.Errorf("failed to upsert game %s: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func countRows(ctx context.Context, db *sql.DB) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	for _, table := range []string{"bgg_users", "collection_entries", "games"} {
		var count int64
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, err
		}
		stats[table] = count
	}
	return stats, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func jsonText(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
