package store

import (
	"context"
	"os"
	"sort"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string       `json:"db_path"`
	DBSizeBytes int64        `json:"db_size_bytes"`
	TotalKeys   int          `json:"total_keys"`
	TotalWrites int          `json:"total_writes"`
	GlobalKeys  int          `json:"global_keys"`
	Owners      []OwnerStats `json:"owners"`
}

// OwnerStats holds per-account counts.
type OwnerStats struct {
	Email  string `json:"email"`
	Keys   int    `json:"keys"`
	Writes int    `json:"writes"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, version FROM kv`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	byOwner := map[string]*OwnerStats{}
	for rows.Next() {
		var key string
		var version int
		if err := rows.Scan(&key, &version); err != nil {
			return st, err
		}
		st.TotalKeys++
		st.TotalWrites += version

		owner := ownerOf(key)
		if owner == "" {
			st.GlobalKeys++
			continue
		}
		o, ok := byOwner[owner]
		if !ok {
			o = &OwnerStats{Email: owner}
			byOwner[owner] = o
		}
		o.Keys++
		o.Writes += version
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	for _, o := range byOwner {
		st.Owners = append(st.Owners, *o)
	}
	sort.Slice(st.Owners, func(i, j int) bool {
		if st.Owners[i].Writes != st.Owners[j].Writes {
			return st.Owners[i].Writes > st.Owners[j].Writes
		}
		return st.Owners[i].Email < st.Owners[j].Email
	})

	return st, nil
}
