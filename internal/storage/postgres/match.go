package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMatchNotFound is returned when a match lookup yields no results.
var ErrMatchNotFound = errors.New("match not found")

// ErrMatchExists is returned when a match id is recorded twice.
var ErrMatchExists = errors.New("match already recorded")

// Match is one finished battle.
type Match struct {
	ID         uuid.UUID
	Label      string
	Mode       string
	TurnOrder  string
	Winner     string
	Reason     string
	Detail     string
	Turns      int
	Cycles     int
	Duration   time.Duration
	StartedAt  time.Time
	FinishedAt time.Time
}

// MatchRepository persists finished matches.
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a MatchRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

const matchColumns = `id, label, mode, turn_order, winner, reason, detail, turns, cycles, duration_ms, started_at, finished_at`

// Record inserts m.
//
// Precondition: m.ID is not uuid.Nil.
// Postcondition: the match is stored, or ErrMatchExists if its id was already recorded.
func (r *MatchRepository) Record(ctx context.Context, m Match) error {
	if m.ID == uuid.Nil {
		return errors.New("recording match: id must not be nil")
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO matches (`+matchColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.Label, m.Mode, m.TurnOrder, m.Winner, m.Reason, m.Detail,
		m.Turns, m.Cycles, m.Duration.Milliseconds(), m.StartedAt, m.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrMatchExists
		}
		return fmt.Errorf("inserting match: %w", err)
	}
	return nil
}

// Get retrieves a match by id.
//
// Postcondition: Returns the Match or ErrMatchNotFound.
func (r *MatchRepository) Get(ctx context.Context, id uuid.UUID) (Match, error) {
	row := r.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Match{}, ErrMatchNotFound
		}
		return Match{}, fmt.Errorf("querying match: %w", err)
	}
	return m, nil
}

// Recent returns up to limit matches, most recently finished first.
//
// Precondition: limit > 0.
func (r *MatchRepository) Recent(ctx context.Context, limit int) ([]Match, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+matchColumns+` FROM matches ORDER BY finished_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent matches: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return out, nil
}

// Tally counts recorded matches by winner for label; an empty label counts all.
func (r *MatchRepository) Tally(ctx context.Context, label string) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT winner, COUNT(*) FROM matches
		 WHERE $1 = '' OR label = $1
		 GROUP BY winner`, label)
	if err != nil {
		return nil, fmt.Errorf("tallying matches: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var winner string
		var n int
		if err := rows.Scan(&winner, &n); err != nil {
			return nil, fmt.Errorf("scanning tally: %w", err)
		}
		out[winner] = n
	}
	return out, rows.Err()
}

func scanMatch(row pgx.Row) (Match, error) {
	var m Match
	var ms int64
	err := row.Scan(&m.ID, &m.Label, &m.Mode, &m.TurnOrder, &m.Winner, &m.Reason, &m.Detail,
		&m.Turns, &m.Cycles, &ms, &m.StartedAt, &m.FinishedAt)
	if err != nil {
		return Match{}, err
	}
	m.Duration = time.Duration(ms) * time.Millisecond
	return m, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
