package repository

import (
	"context"
	"database/sql"
)

// ReportRepository maintains the (capsule, reporter) report ledger. Report
// counts are derived from this ledger so the same reporter can never be
// counted twice, even under concurrent report calls.
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Add records a report for the (capsuleID, reporterID) pair and reports
// whether it was counted. A duplicate pair is silently ignored by the
// ledger's primary key, making the operation race-safe.
func (r *ReportRepository) Add(ctx context.Context, capsuleID string, reporterID int64, reason string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO capsule_reports (capsule_id, reporter_id, reason) VALUES (?, ?, ?)`,
		capsuleID, reporterID, reason,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Count returns the number of distinct reporters of a capsule.
func (r *ReportRepository) Count(ctx context.Context, capsuleID string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM capsule_reports WHERE capsule_id = ?`, capsuleID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
