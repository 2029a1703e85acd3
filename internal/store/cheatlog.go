package store

import (
	"database/sql"
	"time"

	"github.com/pavelanni/proctor/internal/model"
)

// UpsertCheatingLog merges a violation report into the stored log for the
// (exam, student) pair in one statement. All counters merge with MAX, so a
// stale or replayed report can never decrease what was already recorded; the
// display name deliberately follows the latest report. Screenshot evidence
// merges as a set union by URL via the UNIQUE (log_id, url) index.
func (s *Store) UpsertCheatingLog(r model.ViolationReport) (model.CheatingLog, error) {
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO cheating_logs (exam_id, email, username, total_violations,
		        no_face_count, multiple_face_count, cell_phone_count,
		        prohibited_object_count, tab_switch_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (exam_id, email) DO UPDATE SET
		        username = excluded.username,
		        total_violations = MAX(total_violations, excluded.total_violations),
		        no_face_count = MAX(no_face_count, excluded.no_face_count),
		        multiple_face_count = MAX(multiple_face_count, excluded.multiple_face_count),
		        cell_phone_count = MAX(cell_phone_count, excluded.cell_phone_count),
		        prohibited_object_count = MAX(prohibited_object_count, excluded.prohibited_object_count),
		        tab_switch_count = MAX(tab_switch_count, excluded.tab_switch_count),
		        updated_at = excluded.updated_at`,
		r.ExamID, r.Email, r.Username, max(r.TotalViolations, 0),
		max(r.NoFaceCount, 0), max(r.MultipleFaceCount, 0), max(r.CellPhoneCount, 0),
		max(r.ProhibitedObjectCount, 0), max(r.TabSwitchCount, 0), now, now,
	)
	if err != nil {
		return model.CheatingLog{}, err
	}

	log, err := s.GetCheatingLog(r.ExamID, r.Email)
	if err != nil {
		return model.CheatingLog{}, err
	}

	for _, sc := range r.Screenshots {
		if sc.URL == "" {
			continue
		}
		at := sc.DetectedAt
		if at.IsZero() {
			at = now
		}
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO screenshots (log_id, url, category, detected_at) VALUES (?, ?, ?, ?)`,
			log.ID, sc.URL, sc.Category, at,
		)
		if err != nil {
			return model.CheatingLog{}, err
		}
	}

	return s.GetCheatingLog(r.ExamID, r.Email)
}

const cheatingLogColumns = `id, exam_id, email, username, total_violations,
	no_face_count, multiple_face_count, cell_phone_count,
	prohibited_object_count, tab_switch_count, created_at, updated_at`

func scanCheatingLog(row interface{ Scan(...any) error }) (model.CheatingLog, error) {
	var l model.CheatingLog
	err := row.Scan(&l.ID, &l.ExamID, &l.Email, &l.Username, &l.TotalViolations,
		&l.NoFaceCount, &l.MultipleFaceCount, &l.CellPhoneCount,
		&l.ProhibitedObjectCount, &l.TabSwitchCount, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// GetCheatingLog returns the log for an (exam, student) pair with its
// screenshots, or (zero, sql.ErrNoRows) when absent.
func (s *Store) GetCheatingLog(examID, email string) (model.CheatingLog, error) {
	l, err := scanCheatingLog(s.db.QueryRow(
		`SELECT `+cheatingLogColumns+` FROM cheating_logs WHERE exam_id = ? AND email = ?`, examID, email,
	))
	if err != nil {
		return l, err
	}
	l.Screenshots, err = s.listScreenshots(l.ID)
	return l, err
}

// ViolationCount returns the recorded violation total for an attempt, zero
// when no log exists.
func (s *Store) ViolationCount(examID, email string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT total_violations FROM cheating_logs WHERE exam_id = ? AND email = ?`, examID, email,
	).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

// ListCheatingLogs returns all logs for an exam with screenshots attached.
func (s *Store) ListCheatingLogs(examID string) ([]model.CheatingLog, error) {
	rows, err := s.db.Query(
		`SELECT `+cheatingLogColumns+` FROM cheating_logs WHERE exam_id = ? ORDER BY id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []model.CheatingLog
	for rows.Next() {
		l, err := scanCheatingLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range logs {
		if logs[i].Screenshots, err = s.listScreenshots(logs[i].ID); err != nil {
			return nil, err
		}
	}
	return logs, nil
}

func (s *Store) listScreenshots(logID int64) ([]model.Screenshot, error) {
	rows, err := s.db.Query(
		`SELECT id, url, category, detected_at FROM screenshots WHERE log_id = ? ORDER BY id`, logID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var shots []model.Screenshot
	for rows.Next() {
		var sc model.Screenshot
		if err := rows.Scan(&sc.ID, &sc.URL, &sc.Category, &sc.DetectedAt); err != nil {
			return nil, err
		}
		shots = append(shots, sc)
	}
	return shots, rows.Err()
}
