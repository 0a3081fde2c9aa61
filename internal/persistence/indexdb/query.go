package indexdb

import (
	"context"
	"database/sql"
	"errors"

	"skyticket.ai/internal/sim/world"
)

// EventCounts returns the number of indexed events per kind.
func (s *SQLiteIndex) EventCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}

// LastTick returns the highest indexed tick and its digest.
func (s *SQLiteIndex) LastTick(ctx context.Context) (tick uint64, digest string, ok bool, err error) {
	var t int64
	err = s.db.QueryRowContext(ctx, `SELECT tick, digest FROM ticks ORDER BY tick DESC LIMIT 1`).Scan(&t, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}
	return uint64(t), digest, true, nil
}

func (s *SQLiteIndex) Meta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// RecentEvents returns up to limit events, newest first. An empty kind
// matches every kind.
func (s *SQLiteIndex) RecentEvents(ctx context.Context, kind string, limit int) ([]world.EventEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT tick, kind, mode, distance, x, y, z, COALESCE(text, '') FROM events`
	args := []any{}
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY tick DESC, seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []world.EventEntry
	for rows.Next() {
		var e world.EventEntry
		var tick int64
		if err := rows.Scan(&tick, &e.Kind, &e.Mode, &e.Distance, &e.Pos[0], &e.Pos[1], &e.Pos[2], &e.Text); err != nil {
			return nil, err
		}
		e.Tick = uint64(tick)
		out = append(out, e)
	}
	return out, rows.Err()
}
