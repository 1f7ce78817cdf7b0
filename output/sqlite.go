package output

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tsinghua-fib-lab/takeover-sim/perf"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// SQLiteSink 把每次试次的汇总与采样写入SQLite
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite 打开数据库并建表
func OpenSQLite(path string) (*SQLiteSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Write 在一个事务中写入试次、车道偏移与碰撞
func (s *SQLiteSink) Write(ctx context.Context, r perf.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	st := r.Settings
	res, err := tx.ExecContext(ctx,
		`INSERT INTO trials (
		   session, participant_id, trial_no, rsvp, tts, wpm, text_file, scenario,
		   samples, mean_offset, sdlp, max_offset, collisions, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Session, st.ParticipantID, st.TrialNo, st.RSVP, st.TTS, strings.TrimSpace(st.WPM), st.TextFile, r.Scenario,
		r.Summary.Samples, r.Summary.MeanOffset, r.Summary.SDLP, r.Summary.MaxOffset, r.Summary.Collisions,
		r.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert trial: %w", err)
	}
	trialID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("trial id: %w", err)
	}
	for i, v := range r.Samples {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lane_offsets (trial_id, seq, t, lane_offset, vergence) VALUES (?, ?, ?, ?, ?)`,
			trialID, i, v.T, v.Offset, v.Vergence,
		); err != nil {
			return fmt.Errorf("insert lane offset: %w", err)
		}
	}
	for i, e := range r.Collisions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO collisions (trial_id, seq, t, actor_id, actor_type) VALUES (?, ?, ?, ?, ?)`,
			trialID, i, e.Timestamp, int64(e.OtherActor.ID), e.OtherActor.TypeID,
		); err != nil {
			return fmt.Errorf("insert collision: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Infof("stored %s trial %s as #%d", r.Scenario, st.TrialNo, trialID)
	return nil
}

func (s *SQLiteSink) Close(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
