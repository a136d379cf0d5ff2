// Package store is the authoritative local ledger for stream and stake
// records. Pool aggregates are always derived by querying it, never kept as
// counters, so concurrent terminal sessions cannot drift the totals.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/solterm/solterm/internal/model"
)

type Ledger struct {
	db   *sql.DB
	lock *flock.Flock
}

func Open(path, lockPath string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS streams (
			stream_id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			recipient TEXT NOT NULL,
			cancelled INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_streams_sender ON streams(sender);",
		"CREATE INDEX IF NOT EXISTS idx_streams_recipient ON streams(recipient);",
		`CREATE TABLE IF NOT EXISTS stakes (
			stake_id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			pool_id TEXT NOT NULL,
			status TEXT NOT NULL,
			amount REAL NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_stakes_owner_status ON stakes(owner, status);",
		"CREATE INDEX IF NOT EXISTS idx_stakes_pool_status ON stakes(pool_id, status);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init ledger schema: %w", err)
		}
	}
	return &Ledger{db: db, lock: flock.New(lockPath)}, nil
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) withLock(fn func() error) error {
	locked, err := l.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	if !locked {
		return errors.New("lock ledger: timeout acquiring lock")
	}
	defer func() { _ = l.lock.Unlock() }()
	return fn()
}

// ErrNotFound distinguishes an unknown id from an I/O failure.
var ErrNotFound = errors.New("record not found")

func (l *Ledger) SaveStream(stream model.Stream) error {
	if stream.ID == "" {
		return errors.New("save stream: missing id")
	}
	return l.withLock(func() error {
		payload, err := json.Marshal(stream)
		if err != nil {
			return fmt.Errorf("marshal stream: %w", err)
		}
		cancelled := 0
		if !stream.CancelledAt.IsZero() {
			cancelled = 1
		}
		_, err = l.db.Exec(`
			INSERT INTO streams (stream_id, sender, recipient, cancelled, updated_at, payload)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(stream_id) DO UPDATE SET
				recipient=excluded.recipient,
				cancelled=excluded.cancelled,
				updated_at=excluded.updated_at,
				payload=excluded.payload
		`, stream.ID, stream.Sender, stream.Recipient, cancelled, time.Now().UTC().Unix(), payload)
		if err != nil {
			return fmt.Errorf("save stream: %w", err)
		}
		return nil
	})
}

func (l *Ledger) GetStream(streamID string) (model.Stream, error) {
	var payload []byte
	err := l.db.QueryRow("SELECT payload FROM streams WHERE stream_id = ?", streamID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Stream{}, ErrNotFound
		}
		return model.Stream{}, fmt.Errorf("read stream: %w", err)
	}
	var stream model.Stream
	if err := json.Unmarshal(payload, &stream); err != nil {
		return model.Stream{}, fmt.Errorf("decode stream payload: %w", err)
	}
	return stream, nil
}

// ListStreams returns streams where address is sender, recipient, or either.
func (l *Ledger) ListStreams(address string, direction string) ([]model.Stream, error) {
	var (
		rows *sql.Rows
		err  error
	)
	switch direction {
	case "incoming":
		rows, err = l.db.Query("SELECT payload FROM streams WHERE recipient = ? ORDER BY updated_at DESC", address)
	case "outgoing":
		rows, err = l.db.Query("SELECT payload FROM streams WHERE sender = ? ORDER BY updated_at DESC", address)
	default:
		rows, err = l.db.Query("SELECT payload FROM streams WHERE sender = ? OR recipient = ? ORDER BY updated_at DESC", address, address)
	}
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var out []model.Stream
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		var stream model.Stream
		if err := json.Unmarshal(payload, &stream); err != nil {
			return nil, fmt.Errorf("decode stream payload: %w", err)
		}
		out = append(out, stream)
	}
	return out, rows.Err()
}

func (l *Ledger) SaveStake(stake model.Stake) error {
	if stake.ID == "" {
		return errors.New("save stake: missing id")
	}
	return l.withLock(func() error {
		payload, err := json.Marshal(stake)
		if err != nil {
			return fmt.Errorf("marshal stake: %w", err)
		}
		_, err = l.db.Exec(`
			INSERT INTO stakes (stake_id, owner, pool_id, status, amount, updated_at, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(stake_id) DO UPDATE SET
				status=excluded.status,
				amount=excluded.amount,
				updated_at=excluded.updated_at,
				payload=excluded.payload
		`, stake.ID, stake.Owner, stake.PoolID, string(stake.Status), stake.Amount, time.Now().UTC().Unix(), payload)
		if err != nil {
			return fmt.Errorf("save stake: %w", err)
		}
		return nil
	})
}

func (l *Ledger) GetStake(stakeID string) (model.Stake, error) {
	var payload []byte
	err := l.db.QueryRow("SELECT payload FROM stakes WHERE stake_id = ?", stakeID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Stake{}, ErrNotFound
		}
		return model.Stake{}, fmt.Errorf("read stake: %w", err)
	}
	var stake model.Stake
	if err := json.Unmarshal(payload, &stake); err != nil {
		return model.Stake{}, fmt.Errorf("decode stake payload: %w", err)
	}
	return stake, nil
}

// ListStakes returns the owner's stakes, optionally filtered by status.
func (l *Ledger) ListStakes(owner string, status model.StakeStatus) ([]model.Stake, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = l.db.Query("SELECT payload FROM stakes WHERE owner = ? ORDER BY updated_at DESC", owner)
	} else {
		rows, err = l.db.Query("SELECT payload FROM stakes WHERE owner = ? AND status = ? ORDER BY updated_at DESC", owner, string(status))
	}
	if err != nil {
		return nil, fmt.Errorf("list stakes: %w", err)
	}
	defer rows.Close()

	var out []model.Stake
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan stake: %w", err)
		}
		var stake model.Stake
		if err := json.Unmarshal(payload, &stake); err != nil {
			return nil, fmt.Errorf("decode stake payload: %w", err)
		}
		out = append(out, stake)
	}
	return out, rows.Err()
}

// PoolAggregates derives the live totals for a pool from active stakes.
func (l *Ledger) PoolAggregates(poolID string) (totalStaked float64, participants int, err error) {
	row := l.db.QueryRow(
		"SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM stakes WHERE pool_id = ? AND status = ?",
		poolID, string(model.StakeActive),
	)
	if err := row.Scan(&totalStaked, &participants); err != nil {
		return 0, 0, fmt.Errorf("aggregate pool: %w", err)
	}
	return totalStaked, participants, nil
}
