package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/storage"
)

// TaskRepositoryConfig is the configuration for the SQLite task repository.
type TaskRepositoryConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *TaskRepositoryConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.TaskRepository"})
	return nil
}

// TaskRepository is a SQLite implementation of storage.TaskRepository.
type TaskRepository struct {
	db     *sql.DB
	logger log.Logger
}

var _ storage.TaskRepository = &TaskRepository{}

// NewTaskRepository creates a new SQLite task repository.
func NewTaskRepository(cfg TaskRepositoryConfig) (*TaskRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &TaskRepository{
		db:     cfg.DB,
		logger: cfg.Logger,
	}, nil
}

// AddTask adds a single task to an operation.
func (r *TaskRepository) AddTask(ctx context.Context, runID, operation, name string) error {
	return r.AddTasks(ctx, runID, operation, []string{name})
}

// AddTasks adds multiple tasks to an operation in order.
func (r *TaskRepository) AddTasks(ctx context.Context, runID, operation string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // Rollback is safe to call after Commit

	// Get the current max sequence for this operation
	var maxSeq int
	query := `SELECT COALESCE(MAX(sequence), 0) FROM tasks WHERE run_id = ? AND operation = ?`
	if err := tx.QueryRowContext(ctx, query, runID, operation).Scan(&maxSeq); err != nil {
		return fmt.Errorf("could not get max sequence: %w", err)
	}

	// Insert all tasks
	insertQuery := `
		INSERT INTO tasks (id, run_id, operation, sequence, name, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, '', ?)
	`
	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("could not prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, name := range names {
		taskID := ulid.Make().String()
		sequence := maxSeq + i + 1
		_, err := stmt.ExecContext(ctx, taskID, runID, operation, sequence, name, model.TaskStatusPending, now.Unix())
		if err != nil {
			return fmt.Errorf("could not insert task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Added %d tasks for run %s operation %s", len(names), runID, operation)
	return nil
}

// NextTask returns the next pending task for an operation, or nil if all done.
func (r *TaskRepository) NextTask(ctx context.Context, runID, operation string) (*model.Task, error) {
	query := `
		SELECT id, run_id, operation, sequence, name, status, error, created_at
		FROM tasks
		WHERE run_id = ? AND operation = ? AND status = ?
		ORDER BY sequence ASC
		LIMIT 1
	`

	t, err := scanTask(r.db.QueryRowContext(ctx, query, runID, operation, model.TaskStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No pending tasks
		}
		return nil, fmt.Errorf("could not query next task: %w", err)
	}

	return &t, nil
}

// CompleteTask marks a task as completed.
func (r *TaskRepository) CompleteTask(ctx context.Context, taskID string) error {
	query := `UPDATE tasks SET status = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, model.TaskStatusDone, taskID)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	r.logger.Debugf("Completed task: %s", taskID)
	return nil
}

// FailTask marks a task as failed with an error message.
func (r *TaskRepository) FailTask(ctx context.Context, taskID string, taskErr error) error {
	errMsg := ""
	if taskErr != nil {
		errMsg = taskErr.Error()
	}

	query := `UPDATE tasks SET status = ?, error = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, model.TaskStatusFailed, errMsg, taskID)
	if err != nil {
		return fmt.Errorf("could not update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	r.logger.Debugf("Failed task: %s (error: %s)", taskID, errMsg)
	return nil
}

// Progress returns the completion progress for an operation.
func (r *TaskRepository) Progress(ctx context.Context, runID, operation string) (*model.TaskProgress, error) {
	query := `
		SELECT 
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as done
		FROM tasks
		WHERE run_id = ? AND operation = ?
	`

	var total, done int
	err := r.db.QueryRowContext(ctx, query, model.TaskStatusDone, runID, operation).Scan(&total, &done)
	if err != nil {
		return nil, fmt.Errorf("could not query progress: %w", err)
	}

	return &model.TaskProgress{
		Done:  done,
		Total: total,
	}, nil
}

// ListTasks returns the tasks of an operation in order.
func (r *TaskRepository) ListTasks(ctx context.Context, runID, operation string) ([]model.Task, error) {
	query := `
		SELECT id, run_id, operation, sequence, name, status, error, created_at
		FROM tasks
		WHERE run_id = ? AND operation = ?
		ORDER BY sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query, runID, operation)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

func scanTask(s scanner) (model.Task, error) {
	var t model.Task
	var createdAt int64
	err := s.Scan(
		&t.ID,
		&t.RunID,
		&t.Operation,
		&t.Sequence,
		&t.Name,
		&t.Status,
		&t.Error,
		&createdAt,
	)
	if err != nil {
		return model.Task{}, err
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return t, nil
}
