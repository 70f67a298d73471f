package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// PGDB is the subset of pgxpool.Pool the conversation stores use.
type PGDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGJobStore persists job records to PostgreSQL for bootstrap deployments
// that run without DynamoDB.
type PGJobStore struct {
	db PGDB
}

// NewPGJobStore builds a Postgres-backed JobStore.
func NewPGJobStore(db PGDB) *PGJobStore {
	if db == nil {
		panic("conversation: pgx pool cannot be nil")
	}
	return &PGJobStore{db: db}
}

var _ JobRecorder = (*PGJobStore)(nil)
var _ JobUpdater = (*PGJobStore)(nil)

// PutPending inserts a pending job record.
func (s *PGJobStore) PutPending(ctx context.Context, job *JobRecord) error {
	if job == nil {
		return errors.New("conversation: job cannot be nil")
	}

	now := time.Now().UTC()
	job.Status = JobStatusPending
	job.CreatedAt = now.Format(time.RFC3339Nano)
	job.UpdatedAt = job.CreatedAt
	if job.ExpiresAt == 0 {
		job.ExpiresAt = now.Add(jobTTL).Unix()
	}

	createJSON, err := marshalJSON(job.CreateRequest)
	if err != nil {
		return err
	}
	turnJSON, err := marshalJSON(job.TurnRequest)
	if err != nil {
		return err
	}
	respJSON, err := marshalJSON(job.Response)
	if err != nil {
		return err
	}

	expiresAt := time.Unix(job.ExpiresAt, 0).UTC()
	if _, execErr := s.db.Exec(ctx, `
		INSERT INTO conversation_jobs (
			job_id, status, request_type, session_id,
			create_request, turn_request, response, error_message,
			created_at, updated_at, expires_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, job.JobID, job.Status, job.RequestType, nullString(job.SessionID), createJSON, turnJSON, respJSON, job.ErrorMessage, now, now, expiresAt); execErr != nil {
		return fmt.Errorf("conversation: failed to persist job: %w", execErr)
	}
	return nil
}

// MarkCompleted updates the job as completed with the final response.
func (s *PGJobStore) MarkCompleted(ctx context.Context, jobID string, resp *TurnResponse, sessionID string) error {
	if jobID == "" {
		return errors.New("conversation: jobID required")
	}
	respJSON, err := marshalJSON(resp)
	if err != nil {
		return err
	}

	result, execErr := s.db.Exec(ctx, `
		UPDATE conversation_jobs
		SET status = $2,
		    response = $3,
		    session_id = $4,
		    error_message = '',
		    updated_at = $5
		WHERE job_id = $1
	`, jobID, JobStatusCompleted, respJSON, nullString(sessionID), time.Now().UTC())
	if execErr != nil {
		return fmt.Errorf("conversation: failed to update job: %w", execErr)
	}
	if result.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// MarkFailed marks the job as failed with an error message.
func (s *PGJobStore) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	if jobID == "" {
		return errors.New("conversation: jobID required")
	}

	result, execErr := s.db.Exec(ctx, `
		UPDATE conversation_jobs
		SET status = $2,
		    response = NULL,
		    error_message = $3,
		    updated_at = $4
		WHERE job_id = $1
	`, jobID, JobStatusFailed, errMsg, time.Now().UTC())
	if execErr != nil {
		return fmt.Errorf("conversation: failed to update job: %w", execErr)
	}
	if result.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// GetJob loads a job by ID.
func (s *PGJobStore) GetJob(ctx context.Context, jobID string) (*JobRecord, error) {
	if jobID == "" {
		return nil, errors.New("conversation: jobID required")
	}

	var (
		createJSON   []byte
		turnJSON     []byte
		responseJSON []byte
		sessionID    pgtype.Text
		createdAt    time.Time
		updatedAt    time.Time
		expiresAt    pgtype.Timestamptz
		status       string
		reqType      string
		errMsg       string
	)

	row := s.db.QueryRow(ctx, `
		SELECT job_id, status, request_type, session_id,
		       create_request, turn_request, response, error_message,
		       created_at, updated_at, expires_at
		FROM conversation_jobs
		WHERE job_id = $1
	`, jobID)

	if err := row.Scan(&jobID, &status, &reqType, &sessionID,
		&createJSON, &turnJSON, &responseJSON, &errMsg,
		&createdAt, &updatedAt, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("conversation: failed to fetch job: %w", err)
	}

	job := &JobRecord{
		JobID:        jobID,
		Status:       JobStatus(status),
		RequestType:  jobType(reqType),
		ErrorMessage: errMsg,
		CreatedAt:    createdAt.Format(time.RFC3339Nano),
		UpdatedAt:    updatedAt.Format(time.RFC3339Nano),
	}
	if sessionID.Valid {
		job.SessionID = sessionID.String
	}
	if expiresAt.Valid {
		job.ExpiresAt = expiresAt.Time.Unix()
	}

	if len(createJSON) > 0 {
		var cr CreateSessionRequest
		if err := json.Unmarshal(createJSON, &cr); err != nil {
			return nil, fmt.Errorf("conversation: failed to decode create_request: %w", err)
		}
		job.CreateRequest = &cr
	}
	if len(turnJSON) > 0 {
		var tr TurnRequest
		if err := json.Unmarshal(turnJSON, &tr); err != nil {
			return nil, fmt.Errorf("conversation: failed to decode turn_request: %w", err)
		}
		job.TurnRequest = &tr
	}
	if len(responseJSON) > 0 {
		var resp TurnResponse
		if err := json.Unmarshal(responseJSON, &resp); err != nil {
			return nil, fmt.Errorf("conversation: failed to decode response: %w", err)
		}
		job.Response = &resp
	}

	return job, nil
}

func marshalJSON[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to encode json: %w", err)
	}
	return data, nil
}

func nullString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
