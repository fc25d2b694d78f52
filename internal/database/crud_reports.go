// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trocker-app/trocker/internal/logging"
	"github.com/trocker-app/trocker/internal/models"
)

// reportColumns is the SELECT list shared by all report reads. Reporter name
// falls back to the raw reporter id for system reporters that have no user row.
const reportColumns = `
	r.id, r.subject_id, r.reporter_id, r.place_id, r.sub_place_id,
	r.entry_time, r.exit_time, r.notes, r.created_at,
	p.name AS place_name, sp.name AS sub_place_name,
	COALESCE(u.name, r.reporter_id) AS reporter_name`

const reportJoins = `
	FROM location_reports r
	JOIN places p ON p.id = r.place_id
	LEFT JOIN sub_places sp ON sp.id = r.sub_place_id
	LEFT JOIN users u ON u.id = r.reporter_id`

// CreateLocationReport records a sighting of the subject at a place.
//
// Inside a single transaction it closes the subject's open report by setting
// its exit time to the new report's entry time, then inserts the new open
// report. This keeps the single-open-report invariant even under concurrent
// writers: the second transaction sees the first one's commit or conflicts
// and fails, never producing two open reports.
//
// Reporting the same place again is not collapsed; each report records one
// continuous stay, so a fresh sighting at the same place closes the previous
// stay and opens a new one.
func (db *DB) CreateLocationReport(ctx context.Context, report *models.LocationReport) (*models.LocationReport, error) {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.EntryTime.IsZero() {
		report.EntryTime = time.Now()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	// Validate the place and sub-place before mutating anything.
	if err := db.checkPlacePair(ctx, report.PlaceID, report.SubPlaceID); err != nil {
		return nil, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	// Close the current open report, if any. Its stay ends the moment the
	// new one begins.
	var openEntry sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT entry_time FROM location_reports WHERE subject_id = ? AND exit_time IS NULL`,
		report.SubjectID).Scan(&openEntry)
	switch {
	case err == nil:
		if openEntry.Valid && report.EntryTime.Before(openEntry.Time) {
			return nil, ErrEntryBeforeOpen
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE location_reports SET exit_time = ? WHERE subject_id = ? AND exit_time IS NULL`,
			report.EntryTime, report.SubjectID); err != nil {
			return nil, fmt.Errorf("failed to close open report: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		// First sighting ever, nothing to close.
	default:
		return nil, fmt.Errorf("failed to look up open report: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO location_reports (id, subject_id, reporter_id, place_id, sub_place_id, entry_time, exit_time, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		report.ID, report.SubjectID, report.ReporterID, report.PlaceID, report.SubPlaceID,
		report.EntryTime, report.Notes, report.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit report: %w", err)
	}

	logging.Debug().
		Str("report_id", report.ID).
		Str("subject_id", report.SubjectID).
		Str("place_id", report.PlaceID).
		Msg("Location report created")

	return db.GetReportByID(ctx, report.ID)
}

// checkPlacePair verifies the place exists and, when a sub-place is given,
// that it belongs to the place.
func (db *DB) checkPlacePair(ctx context.Context, placeID string, subPlaceID *string) error {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT TRUE FROM places WHERE id = ?`, placeID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPlaceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check place: %w", err)
	}

	if subPlaceID == nil {
		return nil
	}

	var parentID string
	err = db.conn.QueryRowContext(ctx,
		`SELECT place_id FROM sub_places WHERE id = ?`, *subPlaceID).Scan(&parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSubPlaceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check sub-place: %w", err)
	}
	if parentID != placeID {
		return ErrSubPlaceMismatch
	}
	return nil
}

// GetReportByID returns one report with resolved display names.
func (db *DB) GetReportByID(ctx context.Context, id string) (*models.LocationReport, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+reportColumns+reportJoins+` WHERE r.id = ?`, id)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return report, err
}

// GetOpenReport returns the subject's open report, or ErrNoOpenReport.
func (db *DB) GetOpenReport(ctx context.Context, subjectID string) (*models.LocationReport, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+reportColumns+reportJoins+` WHERE r.subject_id = ? AND r.exit_time IS NULL`,
		subjectID)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoOpenReport
	}
	return report, err
}

// GetCurrentLocation returns where the subject is believed to be. A subject
// with no open report yields the never-spotted sentinel payload, which is a
// successful response rather than an error.
func (db *DB) GetCurrentLocation(ctx context.Context, subject *models.Subject) (*models.CurrentLocation, error) {
	report, err := db.GetOpenReport(ctx, subject.ID)
	if errors.Is(err, ErrNoOpenReport) {
		return &models.CurrentLocation{
			SubjectID: subject.ID,
			PlaceID:   nil,
			Message:   fmt.Sprintf("%s has not been spotted yet", subject.Name),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	var placeType string
	if err := db.conn.QueryRowContext(ctx,
		`SELECT type FROM places WHERE id = ?`, report.PlaceID).Scan(&placeType); err != nil {
		return nil, fmt.Errorf("failed to resolve place type: %w", err)
	}

	return &models.CurrentLocation{
		SubjectID:    report.SubjectID,
		PlaceID:      &report.PlaceID,
		SubPlaceID:   report.SubPlaceID,
		PlaceType:    placeType,
		PlaceName:    report.PlaceName,
		SubPlaceName: report.SubPlaceName,
		EntryTime:    &report.EntryTime,
		ExitTime:     nil,
	}, nil
}

// GetTimeline returns the subject's reports newest-first, at most limit
// entries. When before is non-nil only reports with entry_time strictly
// earlier are returned, which lets clients page backwards through history.
func (db *DB) GetTimeline(ctx context.Context, subjectID string, limit int, before *time.Time) ([]*models.LocationReport, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + reportColumns + reportJoins + ` WHERE r.subject_id = ?`
	args := []interface{}{subjectID}
	if before != nil {
		query += ` AND r.entry_time < ?`
		args = append(args, *before)
	}
	query += ` ORDER BY r.entry_time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer closeQuietly(rows)

	reports := make([]*models.LocationReport, 0, limit)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timeline: %w", err)
	}
	return reports, nil
}

// CloseReportForDeparture closes the open report paired with a detector
// departure event and appends the departure summary to its notes.
//
// Pairing is two-staged: a visit id embedded in the arrival notes is
// authoritative; when absent, the open report whose entry time lies within
// tolerance of the event's entry time is accepted. A departure that matches
// neither returns ErrNoOpenReport and must not mutate anything.
func (db *DB) CloseReportForDeparture(ctx context.Context, subjectID, visitID string, entryTime, exitTime time.Time, tolerance time.Duration, notesSuffix string) (*models.LocationReport, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	var (
		id    string
		notes sql.NullString
		entry time.Time
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, notes, entry_time FROM location_reports
		 WHERE subject_id = ? AND exit_time IS NULL`, subjectID).
		Scan(&id, &notes, &entry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoOpenReport
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up open report: %w", err)
	}

	if !departureMatches(notes.String, visitID, entry, entryTime, tolerance) {
		return nil, ErrNoOpenReport
	}

	newNotes := notes.String
	if notesSuffix != "" {
		if newNotes != "" {
			newNotes += " | "
		}
		newNotes += notesSuffix
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE location_reports SET exit_time = ?, notes = ? WHERE id = ?`,
		exitTime, newNotes, id); err != nil {
		return nil, fmt.Errorf("failed to close report: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit departure: %w", err)
	}

	logging.Debug().
		Str("report_id", id).
		Str("visit_id", visitID).
		Msg("Departure closed report")

	return db.GetReportByID(ctx, id)
}

// departureMatches decides whether an open report belongs to a departure
// event. The visit id in the notes wins; entry-time proximity is the
// fallback for arrivals recorded before visit ids existed.
func departureMatches(notes, visitID string, reportEntry, eventEntry time.Time, tolerance time.Duration) bool {
	if visitID != "" && strings.Contains(notes, "visit "+visitID) {
		return true
	}
	diff := reportEntry.Sub(eventEntry)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan code.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.LocationReport, error) {
	var (
		r            models.LocationReport
		subPlaceID   sql.NullString
		exitTime     sql.NullTime
		notes        sql.NullString
		subPlaceName sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.SubjectID, &r.ReporterID, &r.PlaceID, &subPlaceID,
		&r.EntryTime, &exitTime, &notes, &r.CreatedAt,
		&r.PlaceName, &subPlaceName, &r.ReporterName,
	)
	if err != nil {
		return nil, err
	}
	if subPlaceID.Valid {
		r.SubPlaceID = &subPlaceID.String
	}
	if exitTime.Valid {
		t := exitTime.Time
		r.ExitTime = &t
	}
	if notes.Valid {
		r.Notes = &notes.String
	}
	if subPlaceName.Valid {
		r.SubPlaceName = &subPlaceName.String
	}
	return &r, nil
}
