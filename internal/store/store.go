package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.cleanupExpiredSessions(); err != nil {
		return nil, fmt.Errorf("cleanup sessions: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		department TEXT NOT NULL DEFAULT '',
		class TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		total_questions INTEGER NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		live_date DATETIME NOT NULL,
		dead_date DATETIME NOT NULL,
		departments TEXT NOT NULL DEFAULT '["All"]',
		classes TEXT NOT NULL DEFAULT '["All"]',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL,
		text TEXT NOT NULL,
		question_type TEXT NOT NULL DEFAULT 'mcq',
		model_answer TEXT NOT NULL DEFAULT '',
		marks INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS options (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		is_correct INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		answers TEXT NOT NULL DEFAULT '{}',
		total_marks INTEGER NOT NULL DEFAULT 0,
		percentage REAL NOT NULL DEFAULT 0,
		show_to_student INTEGER NOT NULL DEFAULT 1,
		flagged INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		UNIQUE (exam_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS subjective_responses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL,
		question_id INTEGER NOT NULL,
		student_email TEXT NOT NULL,
		student_answer TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		feedback TEXT NOT NULL DEFAULT '',
		max_marks INTEGER NOT NULL DEFAULT 0,
		graded_at DATETIME NOT NULL,
		UNIQUE (question_id, student_email)
	);

	CREATE TABLE IF NOT EXISTS cheating_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL,
		email TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		total_violations INTEGER NOT NULL DEFAULT 0,
		no_face_count INTEGER NOT NULL DEFAULT 0,
		multiple_face_count INTEGER NOT NULL DEFAULT 0,
		cell_phone_count INTEGER NOT NULL DEFAULT 0,
		prohibited_object_count INTEGER NOT NULL DEFAULT 0,
		tab_switch_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (exam_id, email)
	);

	CREATE TABLE IF NOT EXISTS screenshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		log_id INTEGER NOT NULL,
		url TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		detected_at DATETIME NOT NULL,
		UNIQUE (log_id, url),
		FOREIGN KEY (log_id) REFERENCES cheating_logs(id)
	);

	CREATE TABLE IF NOT EXISTS coding_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS coding_submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		code TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'submitted',
		execution_ms INTEGER NOT NULL DEFAULT 0,
		submitted_at DATETIME NOT NULL,
		UNIQUE (question_id, user_id),
		FOREIGN KEY (question_id) REFERENCES coding_questions(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// isUniqueViolation reports whether err comes from a UNIQUE constraint.
// The driver exposes no stable error type for this, so match the message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func marshalStrings(list []string) string {
	if len(list) == 0 {
		return `[]`
	}
	b, err := json.Marshal(list)
	if err != nil {
		return `[]`
	}
	return string(b)
}

func unmarshalStrings(raw string) []string {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}
