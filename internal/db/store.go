package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inboxpilot/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// FindOrCreateClient looks up a client by normalized email, creating a
// lead record on first contact. The unique index on lower(email) plus
// ON CONFLICT DO NOTHING makes creation effectively-once under
// concurrent callers.
func (s *Store) FindOrCreateClient(ctx context.Context, email, name string) (models.Client, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.Client{}, false, fmt.Errorf("client email is empty")
	}

	now := time.Now().UTC()
	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO clients (id, email, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (lower(email)) DO NOTHING
	`, uuid.NewString(), email, name, models.ClientStatusLead, now)
	if err != nil {
		return models.Client{}, false, err
	}
	created := tag.RowsAffected() > 0

	var c models.Client
	err = s.Pool.QueryRow(ctx, `
		SELECT id, email, name, status, vip, has_open_issue, language,
			last_contact_at, last_sentiment, churn_risk, satisfaction_trend,
			total_communications, created_at, updated_at
		FROM clients WHERE lower(email) = $1
	`, email).Scan(
		&c.ID, &c.Email, &c.Name, &c.Status, &c.VIP, &c.HasOpenIssue, &c.Language,
		&c.LastContactAt, &c.LastSentiment, &c.ChurnRisk, &c.SatisfactionTrend,
		&c.TotalCommunications, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return models.Client{}, false, err
	}
	return c, created, nil
}

// ClaimMessage records that a run owns a mailbox message. Returns false
// when another run already claimed it, which makes per-message side
// effects at-most-once across overlapping invocations.
func (s *Store) ClaimMessage(ctx context.Context, messageID, runID string) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		INSERT INTO message_claims (message_id, run_id, claimed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (message_id) DO NOTHING
	`, messageID, runID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) LogCommunication(ctx context.Context, comm models.Communication) (string, error) {
	if comm.ID == "" {
		comm.ID = uuid.NewString()
	}
	analysisJSON, err := json.Marshal(comm.Analysis)
	if err != nil {
		return "", err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO communications (id, client_id, message_id, direction, from_addr, to_addr, subject, body, analysis, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, comm.ID, comm.ClientID, comm.MessageID, comm.Direction, comm.From, comm.To,
		comm.Subject, comm.Body, analysisJSON, comm.Status, comm.CreatedAt)
	return comm.ID, err
}

func (s *Store) SetCommunicationStatus(ctx context.Context, commID, status string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE communications SET status = $1 WHERE id = $2`, status, commID)
	return err
}

// GetConversationHistory returns a client's stored communications,
// newest first, bounded by limit.
func (s *Store) GetConversationHistory(ctx context.Context, clientID string, limit int) ([]models.Communication, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, client_id, message_id, direction, from_addr, to_addr, subject, body, analysis, status, created_at
		FROM communications
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCommunications(rows)
}

type ProfileUpdate struct {
	LastContactAt     time.Time
	LastSentiment     string
	Language          string
	ChurnRisk         int
	SatisfactionTrend string
	HasOpenIssue      bool
}

// UpdateClientProfile mutates the client aggregates after a message is
// processed and bumps the communication counter.
func (s *Store) UpdateClientProfile(ctx context.Context, clientID string, u ProfileUpdate) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE clients SET
			last_contact_at = $1,
			last_sentiment = $2,
			language = $3,
			churn_risk = $4,
			satisfaction_trend = $5,
			has_open_issue = $6,
			total_communications = total_communications + 1,
			status = $7,
			updated_at = NOW()
		WHERE id = $8
	`, u.LastContactAt, u.LastSentiment, u.Language, u.ChurnRisk,
		u.SatisfactionTrend, u.HasOpenIssue, models.ClientStatusActive, clientID)
	return err
}

func (s *Store) CreateTicket(ctx context.Context, t models.Ticket) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = "open"
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO tickets (id, client_id, communication_id, subject, priority, category, assigned_to, routing_score, analysis, predictions, status, due_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, t.ID, t.ClientID, t.CommunicationID, t.Subject, t.Priority, t.Category,
		t.AssignedTo, t.RoutingScore, t.Analysis, t.Predictions, t.Status, t.DueAt, t.CreatedAt)
	return t.ID, err
}

func (s *Store) CreateRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO monitor_runs (id, status, started_at) VALUES ($1, 'RUNNING', NOW())
	`, id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID, status string, processed, succeeded, failed int, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE monitor_runs
		SET status = $1, processed = $2, succeeded = $3, failed = $4, summary = $5, finished_at = NOW()
		WHERE id = $6
	`, status, processed, succeeded, failed, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context) (models.Run, error) {
	var r models.Run
	err := s.Pool.QueryRow(ctx, `
		SELECT id, started_at, finished_at, status, processed, succeeded, failed, summary
		FROM monitor_runs ORDER BY started_at DESC LIMIT 1
	`).Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Processed, &r.Succeeded, &r.Failed, &r.Summary)
	return r, err
}

func (s *Store) ListClients(ctx context.Context, status, q string, limit, offset int) ([]models.Client, error) {
	limit, offset = boundPage(limit, offset)

	query := `
		SELECT id, email, name, status, vip, has_open_issue, language,
			last_contact_at, last_sentiment, churn_risk, satisfaction_trend,
			total_communications, created_at, updated_at
		FROM clients`
	var args []any
	var wheres []string
	if status != "" {
		args = append(args, status)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if q != "" {
		args = append(args, "%"+q+"%")
		wheres = append(wheres, fmt.Sprintf("(email ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(
			&c.ID, &c.Email, &c.Name, &c.Status, &c.VIP, &c.HasOpenIssue, &c.Language,
			&c.LastContactAt, &c.LastSentiment, &c.ChurnRisk, &c.SatisfactionTrend,
			&c.TotalCommunications, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListCommunications(ctx context.Context, clientID, status string, limit, offset int) ([]models.Communication, error) {
	limit, offset = boundPage(limit, offset)

	query := `
		SELECT id, client_id, message_id, direction, from_addr, to_addr, subject, body, analysis, status, created_at
		FROM communications`
	var args []any
	var wheres []string
	if clientID != "" {
		args = append(args, clientID)
		wheres = append(wheres, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCommunications(rows)
}

func (s *Store) ListTickets(ctx context.Context, priority, status, q string, limit, offset int) ([]models.Ticket, error) {
	limit, offset = boundPage(limit, offset)

	query := `
		SELECT id, client_id, communication_id, subject, priority, category, assigned_to, routing_score, status, due_at, created_at
		FROM tickets`
	var args []any
	var wheres []string
	if priority != "" {
		args = append(args, priority)
		wheres = append(wheres, fmt.Sprintf("priority = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if q != "" {
		args = append(args, "%"+q+"%")
		wheres = append(wheres, fmt.Sprintf("subject ILIKE $%d", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(
			&t.ID, &t.ClientID, &t.CommunicationID, &t.Subject, &t.Priority, &t.Category,
			&t.AssignedTo, &t.RoutingScore, &t.Status, &t.DueAt, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Analytics aggregates runs, communications and tickets since the given
// time. Aggregation happens in SQL so no full result set is loaded.
func (s *Store) Analytics(ctx context.Context, since time.Time) (map[string]any, error) {
	out := map[string]any{}

	var runs, runsFailed, processed, succeeded, failed int
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'FAILED'),
			COALESCE(SUM(processed), 0),
			COALESCE(SUM(succeeded), 0),
			COALESCE(SUM(failed), 0)
		FROM monitor_runs WHERE started_at >= $1
	`, since).Scan(&runs, &runsFailed, &processed, &succeeded, &failed)
	if err != nil {
		return nil, err
	}
	out["runs"] = map[string]any{
		"total":     runs,
		"failed":    runsFailed,
		"processed": processed,
		"succeeded": succeeded,
		"errors":    failed,
	}

	var comms, autoResponded int
	var avgConfidence, avgFrustration float64
	err = s.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'auto_responded'),
			COALESCE(AVG((analysis->>'confidence')::float), 0),
			COALESCE(AVG((analysis->>'frustration_score')::float), 0)
		FROM communications WHERE created_at >= $1
	`, since).Scan(&comms, &autoResponded, &avgConfidence, &avgFrustration)
	if err != nil {
		return nil, err
	}
	out["communications"] = map[string]any{
		"total":           comms,
		"auto_responded":  autoResponded,
		"avg_confidence":  avgConfidence,
		"avg_frustration": avgFrustration,
	}

	sentiments, err := s.countBy(ctx, `
		SELECT COALESCE(analysis->>'sentiment', 'unknown'), COUNT(*)
		FROM communications WHERE created_at >= $1 GROUP BY 1
	`, since)
	if err != nil {
		return nil, err
	}
	out["sentiment"] = sentiments

	urgencies, err := s.countBy(ctx, `
		SELECT COALESCE(analysis->>'urgency_level', 'unknown'), COUNT(*)
		FROM communications WHERE created_at >= $1 GROUP BY 1
	`, since)
	if err != nil {
		return nil, err
	}
	out["urgency"] = urgencies

	priorities, err := s.countBy(ctx, `
		SELECT priority, COUNT(*) FROM tickets WHERE created_at >= $1 GROUP BY 1
	`, since)
	if err != nil {
		return nil, err
	}
	out["tickets_by_priority"] = priorities

	return out, nil
}

func (s *Store) countBy(ctx context.Context, query string, since time.Time) (map[string]int, error) {
	rows, err := s.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out[key] = count
	}
	return out, rows.Err()
}

func scanCommunications(rows pgx.Rows) ([]models.Communication, error) {
	var out []models.Communication
	for rows.Next() {
		var c models.Communication
		var analysisJSON []byte
		if err := rows.Scan(
			&c.ID, &c.ClientID, &c.MessageID, &c.Direction, &c.From, &c.To,
			&c.Subject, &c.Body, &analysisJSON, &c.Status, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(analysisJSON) > 0 {
			if err := json.Unmarshal(analysisJSON, &c.Analysis); err != nil {
				return nil, err
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func boundPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
