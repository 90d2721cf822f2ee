// Package history persists completed negotiations and their audit trails.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dtorcivia/meetquorum/internal/database"
	"github.com/dtorcivia/meetquorum/internal/negotiation"
	"github.com/dtorcivia/meetquorum/internal/util"
)

// ErrNotFound is returned when no negotiation exists for the given ID.
var ErrNotFound = errors.New("negotiation not found")

// Record is one persisted negotiation outcome.
type Record struct {
	ID               string     `json:"id"`
	Success          bool       `json:"success"`
	Stage            string     `json:"stage"`
	Urgency          string     `json:"urgency"`
	TargetDate       string     `json:"target_date"`
	SlotStart        *time.Time `json:"slot_start,omitempty"`
	SlotEnd          *time.Time `json:"slot_end,omitempty"`
	DurationMinutes  int        `json:"duration_minutes"`
	ConsensusScore   float64    `json:"consensus_score"`
	ParticipantCount int        `json:"participant_count"`
	Participants     []string   `json:"participants"`
	Reasoning        string     `json:"reasoning,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	Trail            []string   `json:"trail,omitempty"`
}

// Repository handles negotiation storage and retrieval.
type Repository struct {
	db *database.DB
}

// NewRepository creates a new negotiation repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a terminal negotiation result together with its audit
// trail. The result and trail are written in one transaction.
func (r *Repository) Create(ctx context.Context, result *negotiation.Result, targetDate time.Time, durationMinutes int, participants []string) error {
	emails, err := json.Marshal(participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}

	var slotStart, slotEnd interface{}
	if result.Slot != nil {
		slotStart = util.FormatRFC3339(result.Slot.Start)
		slotEnd = util.FormatRFC3339(result.Slot.End)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO negotiations (
			id, success, stage, urgency, target_date, slot_start, slot_end,
			duration_minutes, consensus_score, participant_count, participants,
			reasoning, failure_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, result.RequestID, boolToInt(result.Success), result.Stage, result.Urgency.String(),
		targetDate.Format("2006-01-02"), slotStart, slotEnd,
		durationMinutes, result.ConsensusScore, result.Participants, string(emails),
		result.Reasoning, result.FailureReason)
	if err != nil {
		return fmt.Errorf("failed to insert negotiation: %w", err)
	}

	for seq, line := range result.Trail {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO negotiation_audit (negotiation_id, seq, line) VALUES (?, ?, ?)
		`, result.RequestID, seq, line); err != nil {
			return fmt.Errorf("failed to insert audit line: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves one negotiation with its full audit trail.
func (r *Repository) GetByID(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, success, stage, urgency, target_date, slot_start, slot_end,
		       duration_minutes, consensus_score, participant_count, participants,
		       reasoning, failure_reason, created_at
		FROM negotiations
		WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT line FROM negotiation_audit WHERE negotiation_id = ? ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		rec.Trail = append(rec.Trail, line)
	}
	return rec, rows.Err()
}

// ListRecent returns the most recent negotiations without their trails.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, success, stage, urgency, target_date, slot_start, slot_end,
		       duration_minutes, consensus_score, participant_count, participants,
		       reasoning, failure_reason, created_at
		FROM negotiations
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query negotiations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec           Record
		success       int
		slotStart     sql.NullString
		slotEnd       sql.NullString
		participants  string
		reasoning     sql.NullString
		failureReason sql.NullString
		createdAt     string
	)

	err := row.Scan(&rec.ID, &success, &rec.Stage, &rec.Urgency, &rec.TargetDate,
		&slotStart, &slotEnd, &rec.DurationMinutes, &rec.ConsensusScore,
		&rec.ParticipantCount, &participants, &reasoning, &failureReason, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan negotiation: %w", err)
	}

	rec.Success = success == 1
	rec.Reasoning = reasoning.String
	rec.FailureReason = failureReason.String

	if err := json.Unmarshal([]byte(participants), &rec.Participants); err != nil {
		return nil, fmt.Errorf("invalid participants column: %w", err)
	}
	if slotStart.Valid {
		if t, err := util.ParseRFC3339(slotStart.String); err == nil {
			rec.SlotStart = &t
		}
	}
	if slotEnd.Valid {
		if t, err := util.ParseRFC3339(slotEnd.String); err == nil {
			rec.SlotEnd = &t
		}
	}
	if t, err := util.ParseSQLiteTimestamp(createdAt); err == nil {
		rec.CreatedAt = t
	}

	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
