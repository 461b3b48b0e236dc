// Package db journals the observations fed to hint sessions so an agent can
// be rebuilt after a restart.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/minesai/ai"
)

//go:embed sqlc/schema.sql
var ddl string

var log = logrus.New()

func SetLogger(l *logrus.Logger) {
	log = l
}

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	ID        string
	Height    int
	Width     int
	CreatedAt time.Time
}

type Observation struct {
	Seq   int
	Cell  ai.Cell
	Count int
}

type SQLStore struct {
	DB *sql.DB
}

func InitializeTables(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

func (s *SQLStore) InitializeTables() error {
	return InitializeTables(s.DB)
}

// InitStore opens the database named by DB_PATH.
func InitStore() (*SQLStore, error) {
	path := os.Getenv("DB_PATH")
	if path == "" {
		return nil, fmt.Errorf("DB_PATH not set in environment")
	}
	return Open(path)
}

func Open(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Need to ping the database to check if the file could be opened
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{DB: db}, nil
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}

func (s *SQLStore) CreateSession(ctx context.Context, height, width int) (string, error) {
	id := uuid.NewString()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO sessions (id, height, width) VALUES (?, ?, ?)`,
		id, height, width)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	log.WithFields(logrus.Fields{"session": id, "height": height, "width": width}).Debug("session created")
	return id, nil
}

func (s *SQLStore) Session(ctx context.Context, id string) (*Session, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, height, width, created_at FROM sessions WHERE id = ?`, id)
	var session Session
	err := row.Scan(&session.ID, &session.Height, &session.Width, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SQLStore) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, height, width, created_at FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []Session
	for rows.Next() {
		var session Session
		if err := rows.Scan(&session.ID, &session.Height, &session.Width, &session.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// RecordObservation appends an observation to the session journal.
func (s *SQLStore) RecordObservation(ctx context.Context, id string, cell ai.Cell, count int) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO observations (session_id, seq, row_idx, col_idx, mine_count)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ? FROM observations WHERE session_id = ?`,
		id, cell.Row, cell.Col, count, id)
	if err != nil {
		return fmt.Errorf("record observation: %w", err)
	}
	log.WithFields(logrus.Fields{"session": id, "cell": cell, "count": count}).Debug("observation recorded")
	return nil
}

func (s *SQLStore) Observations(ctx context.Context, id string) ([]Observation, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT seq, row_idx, col_idx, mine_count FROM observations
		WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var observations []Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.Seq, &o.Cell.Row, &o.Cell.Col, &o.Count); err != nil {
			return nil, err
		}
		observations = append(observations, o)
	}
	return observations, rows.Err()
}

// Restore rebuilds the agent of a session by observing its journal again.
func (s *SQLStore) Restore(ctx context.Context, id string, opts ...ai.Option) (*ai.Agent, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	agent, err := ai.NewAgent(session.Height, session.Width, opts...)
	if err != nil {
		return nil, err
	}
	observations, err := s.Observations(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, o := range observations {
		if err := agent.Observe(o.Cell, o.Count); err != nil {
			return nil, fmt.Errorf("restore session %s at seq %d: %w", id, o.Seq, err)
		}
	}
	log.WithFields(logrus.Fields{"session": id, "observations": len(observations)}).Debug("session restored")
	return agent, nil
}
