package pg

import (
	"context"
	"fmt"

	"rowhub.org/internal/perf"
)

var _ perf.Store = (*PerfStore)(nil)

// PerfStore persists performance tests on the shared pool.
type PerfStore struct {
	store *Store
}

// Perf returns the performance-test repository.
func (s *Store) Perf() *PerfStore { return &PerfStore{store: s} }

const testColumns = `
	id, subject_id, subject_name, society_id, test_date, distance, time_seconds,
	split_500, watts, watts_per_kg, strokes, weight, height, notes, created_at`

func (p *PerfStore) Create(ctx context.Context, t *perf.Test) error {
	_, err := p.store.db.ExecContext(ctx, `
		insert into tests (id, subject_id, subject_name, society_id, test_date, distance,
			time_seconds, split_500, watts, watts_per_kg, strokes, weight, height, notes, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, t.ID, t.SubjectID, t.SubjectName, t.SocietyID, t.Date, t.Distance,
		t.TimeSeconds, t.Split500, t.Watts, t.WattsPerKg, t.Strokes, t.Weight, t.Height, t.Notes, t.CreatedAt)
	return err
}

func (p *PerfStore) List(ctx context.Context, filter perf.Filter) ([]*perf.Test, error) {
	query := `select` + testColumns + ` from tests where 1=1`
	var args []any
	if filter.SubjectIDs != nil {
		args = append(args, filter.SubjectIDs)
		query += fmt.Sprintf(" and subject_id = any($%d)", len(args))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		query += fmt.Sprintf(" and subject_id = $%d", len(args))
	}
	query += " order by test_date desc, created_at desc"

	rows, err := p.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*perf.Test
	for rows.Next() {
		t := &perf.Test{}
		if err := rows.Scan(&t.ID, &t.SubjectID, &t.SubjectName, &t.SocietyID, &t.Date,
			&t.Distance, &t.TimeSeconds, &t.Split500, &t.Watts, &t.WattsPerKg,
			&t.Strokes, &t.Weight, &t.Height, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (p *PerfStore) ListBySubject(ctx context.Context, subjectID string) ([]*perf.Test, error) {
	return p.List(ctx, perf.Filter{SubjectID: subjectID})
}
