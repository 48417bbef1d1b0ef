// Package query reads the model history written by the ClickHouse writer.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Go2NetModel/internal/config"
	"Go2NetModel/internal/model"
	"Go2NetModel/internal/writer"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const (
	defaultLimit = 100
	maxLimit     = 10000
)

// ErrMissingTopic is returned for a history request without a topic.
var ErrMissingTopic = errors.New("history request needs a topic")

// HistoryRequest selects the stored models of one topic.
type HistoryRequest struct {
	Topic string
	Since time.Time // zero means unbounded
	Until time.Time // zero means unbounded
	Limit int
}

// HistoryPoint is one published model as stored.
type HistoryPoint struct {
	Timestamp time.Time      `json:"timestamp"`
	Session   string         `json:"session"`
	Model     model.Snapshot `json:"model"`
}

// Querier defines the interface for querying model history.
type Querier interface {
	History(ctx context.Context, req HistoryRequest) ([]HistoryPoint, error)
	Close() error
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn  driver.Conn
	table string
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := writer.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn, table: cfg.Table}, nil
}

// buildHistoryQuery returns the newest-first select for req.
func buildHistoryQuery(table string, req HistoryRequest) (string, []any, error) {
	if req.Topic == "" {
		return "", nil, ErrMissingTopic
	}

	var qb strings.Builder
	qb.WriteString("SELECT Timestamp, Session, Topic, A, B, SigmaT, S, SigmaS FROM ")
	qb.WriteString(table)

	whereClauses := []string{"Topic = ?"}
	args := []any{req.Topic}
	if !req.Since.IsZero() {
		whereClauses = append(whereClauses, "Timestamp >= ?")
		args = append(args, req.Since)
	}
	if !req.Until.IsZero() {
		whereClauses = append(whereClauses, "Timestamp <= ?")
		args = append(args, req.Until)
	}
	qb.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	qb.WriteString(fmt.Sprintf(" ORDER BY Timestamp DESC LIMIT %d", limit))

	return qb.String(), args, nil
}

// History returns the stored models of a topic, newest first.
func (q *clickhouseQuerier) History(ctx context.Context, req HistoryRequest) ([]HistoryPoint, error) {
	sql, args, err := buildHistoryQuery(q.table, req)
	if err != nil {
		return nil, err
	}

	rows, err := q.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var points []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		s := &p.Model
		if err := rows.Scan(&p.Timestamp, &p.Session, &s.ID, &s.A, &s.B, &s.SigmaT, &s.S, &s.SigmaS); err != nil {
			return nil, fmt.Errorf("failed to scan model history row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read model history: %w", err)
	}
	return points, nil
}

func (q *clickhouseQuerier) Close() error {
	return q.conn.Close()
}
