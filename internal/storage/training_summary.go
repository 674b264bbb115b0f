package storage

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/claude/replog/internal/models"
)

// GetTrainingSummary returns the user's logged work per period, newest first.
// bucket is "week" or "month".
func (db *DB) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]models.TrainingPeriod, error) {
	trunc := truncInterval(bucket)
	periods := map[string]*models.TrainingPeriod{}
	var order []string
	period := func(t time.Time) *models.TrainingPeriod {
		key := t.Format("2006-01-02")
		p, ok := periods[key]
		if !ok {
			p = &models.TrainingPeriod{Period: key}
			periods[key] = p
			order = append(order, key)
		}
		return p
	}

	// Query 1: sessions and minutes
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, date)::date AS period,
		        COUNT(*)::int,
		        COALESCE(SUM(duration_minutes), 0)::int
		 FROM sessions
		 WHERE date >= $2 AND date < $3 AND user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		trunc, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying session summary: %w", err)
	}
	for rows.Next() {
		var t time.Time
		var sessions, minutes int
		if err := rows.Scan(&t, &sessions, &minutes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning session summary: %w", err)
		}
		p := period(t)
		p.Sessions, p.Minutes = sessions, minutes
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query 2: entries, pain flags and effort
	rows, err = db.Pool.Query(ctx,
		`SELECT date_trunc($1, s.date)::date AS period,
		        COUNT(*)::int,
		        COUNT(*) FILTER (WHERE e.pain_flag)::int,
		        AVG(e.rpe)
		 FROM session_entries e
		 JOIN sessions s ON s.id = e.session_id
		 WHERE s.date >= $2 AND s.date < $3 AND s.user_id = $4
		 GROUP BY period`,
		trunc, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying entry summary: %w", err)
	}
	for rows.Next() {
		var t time.Time
		var entries, pain int
		var rpe *float64
		if err := rows.Scan(&t, &entries, &pain, &rpe); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning entry summary: %w", err)
		}
		p := period(t)
		p.Entries, p.PainFlags, p.AvgRPE = entries, pain, rpe
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query 3: completed set volume
	rows, err = db.Pool.Query(ctx,
		`SELECT date_trunc($1, s.date)::date AS period,
		        COUNT(*)::int,
		        COALESCE(SUM((st->>'reps')::int), 0)::int,
		        COALESCE(SUM((st->>'reps')::int * (st->>'value')::float8) FILTER (WHERE st->>'unit' = 'lb'), 0),
		        COALESCE(SUM((st->>'reps')::int * (st->>'value')::float8) FILTER (WHERE st->>'unit' = 'kg'), 0)
		 FROM session_entries e
		 JOIN sessions s ON s.id = e.session_id
		 CROSS JOIN LATERAL jsonb_array_elements(e.sets) AS st
		 WHERE s.date >= $2 AND s.date < $3 AND s.user_id = $4
		   AND (st->>'completed')::boolean
		 GROUP BY period`,
		trunc, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying set summary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t time.Time
		var sets, reps int
		var lb, kg float64
		if err := rows.Scan(&t, &sets, &reps, &lb, &kg); err != nil {
			return nil, fmt.Errorf("scanning set summary: %w", err)
		}
		p := period(t)
		p.CompletedSets, p.TotalReps, p.VolumeLb, p.VolumeKg = sets, reps, lb, kg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortPeriodsDesc(order)
	result := make([]models.TrainingPeriod, 0, len(order))
	for _, key := range order {
		result = append(result, *periods[key])
	}
	return result, nil
}

// truncInterval maps a bucket name to the unit date_trunc expects.
func truncInterval(bucket string) string {
	switch bucket {
	case "week", "1 week":
		return "week"
	default:
		return "month"
	}
}

// sortPeriodsDesc orders YYYY-MM-DD keys newest first.
func sortPeriodsDesc(keys []string) {
	slices.Sort(keys)
	slices.Reverse(keys)
}
