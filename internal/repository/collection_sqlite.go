package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bgshelf-api/internal/logging"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteCollectionRepository implements CollectionRepository using SQLite.
type SQLiteCollectionRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteCollectionRepository opens (and creates) the database at dbPath.
func NewSQLiteCollectionRepository(dbPath string) (*SQLiteCollectionRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logging.Info().Str("path", dbPath).Msg("[SQLiteCollectionRepository] Initialized")
	return &SQLiteCollectionRepository{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS bgg_users (
		username TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		display_name TEXT NOT NULL,
		color TEXT NOT NULL,
		synced_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS collection_entries (
		username TEXT NOT NULL,
		coll_id TEXT NOT NULL,
		game_id TEXT NOT NULL,
		name TEXT NOT NULL,
		thumbnail TEXT NOT NULL,
		last_modified TEXT NOT NULL,
		num_plays INTEGER NOT NULL DEFAULT 0,
		own INTEGER NOT NULL DEFAULT 0,
		wishlist INTEGER NOT NULL DEFAULT 0,
		wishlist_priority INTEGER,
		post_date TEXT,
		rating REAL,
		rating_timestamp TEXT,
		synced_at DATETIME NOT NULL,
		PRIMARY KEY (username, coll_id)
	);
	CREATE INDEX IF NOT EXISTS idx_entries_game ON collection_entries(game_id);
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		min_players TEXT NOT NULL,
		max_players TEXT NOT NULL,
		playing_time TEXT NOT NULL,
		best_at_count TEXT NOT NULL,
		average_rating TEXT NOT NULL,
		average_weight TEXT NOT NULL,
		board_game_rank TEXT NOT NULL,
		mechanics TEXT NOT NULL,
		categories TEXT NOT NULL,
		designers TEXT NOT NULL,
		synced_at DATETIME NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

const (
	sqliteUpsertUser = `
		INSERT INTO bgg_users (username, user_id, display_name, color, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			user_id = excluded.user_id,
			display_name = excluded.display_name,
			color = excluded.color,
			synced_at = excluded.synced_at`

	sqliteUpsertEntry = `
		INSERT INTO collection_entries (username, coll_id, game_id, name, thumbnail, last_modified,
			num_plays, own, wishlist, wishlist_priority, post_date, rating, rating_timestamp, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username, coll_id) DO UPDATE SET
			game_id = excluded.game_id,
			name = excluded.name,
			thumbnail = excluded.thumbnail,
			last_modified = excluded.last_modified,
			num_plays = excluded.num_plays,
			own = excluded.own,
			wishlist = excluded.wishlist,
			wishlist_priority = excluded.wishlist_priority,
			post_date = excluded.post_date,
			rating = excluded.rating,
			rating_timestamp = excluded.rating_timestamp,
			synced_at = excluded.synced_at`

	sqliteUpsertGame = `
		INSERT INTO games (id, name, type, min_players, max_players, playing_time, best_at_count,
			average_rating, average_weight, board_game_rank, mechanics, categories, designers, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			min_players = excluded.min_players,
			max_players = excluded.max_players,
			playing_time = excluded.playing_time,
			best_at_count = excluded.best_at_count,
			average_rating = excluded.average_rating,
			average_weight = excluded.average_weight,
			board_game_rank = excluded.board_game_rank,
			mechanics = excluded.mechanics,
			categories = excluded.categories,
			designers = excluded.designers,
			synced_at = excluded.synced_at`
)

// SyncCollection upserts the batch inside one transaction.
func (r *SQLiteCollectionRepository) SyncCollection(ctx context.Context, batch SyncBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return syncBatch(ctx, r.db, batch, statements{
		user:  sqliteUpsertUser,
		entry: sqliteUpsertEntry,
		game:  sqliteUpsertGame,
	}, time.Now().UTC())
}

// GetStats returns statistics about the mirror database.
func (r *SQLiteCollectionRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, err := countRows(ctx, r.db)
	if err != nil {
		return nil, err
	}

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteCollectionRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteCollectionRepository implements CollectionRepository
var _ CollectionRepository = (*SQLiteCollectionRepository)(nil)
