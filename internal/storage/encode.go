package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/claude/replog/internal/models"
)

const (
	defaultHistoryLimit  = 10
	defaultSessionsLimit = 20
	maxLimit             = 200
)

// clampLimit applies the default for non-positive limits and caps the rest.
func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

// encodeSets marshals a set list for a JSONB column. Nil becomes [].
func encodeSets(sets []models.SetRecord) ([]byte, error) {
	if sets == nil {
		sets = []models.SetRecord{}
	}
	data, err := json.Marshal(sets)
	if err != nil {
		return nil, fmt.Errorf("encoding sets: %w", err)
	}
	return data, nil
}

// decodeSets unmarshals a JSONB set list. Empty input yields an empty list.
func decodeSets(data []byte) ([]models.SetRecord, error) {
	sets := []models.SetRecord{}
	if len(data) == 0 {
		return sets, nil
	}
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("decoding sets: %w", err)
	}
	return sets, nil
}

func encodeTarget(t models.Target) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding target: %w", err)
	}
	return data, nil
}

func decodeTarget(data []byte) (models.Target, error) {
	var t models.Target
	if len(data) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("decoding target: %w", err)
	}
	return t, nil
}

// durationMinutes rounds the time between start and end to whole minutes,
// never below zero.
func durationMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}

// sessionName is the display name of a new session.
func sessionName(workout string, date time.Time) string {
	if workout == "" {
		workout = "Freestyle"
	}
	return fmt.Sprintf("%s · %s", workout, date.Format("Jan 2"))
}
