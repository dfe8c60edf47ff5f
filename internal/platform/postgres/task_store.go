package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/artifact"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/platform/logger"
	"github.com/phrazzld/studytools/internal/store"
)

const taskColumns = `id, document_id, owner_id, tool_type, status, result,
	idempotency_key, lease_owner, lease_until, attempts, created_at, updated_at`

// PostgresTaskStore implements store.TaskStore on the ai_tool_tasks table.
// Status changes run in a transaction holding the row lock, so concurrent
// writers for one task are serialized.
type PostgresTaskStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a task store on db. If logger is nil the
// default logger is used.
func NewPostgresTaskStore(db *sql.DB, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create implements store.TaskStore.Create.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) (*domain.Task, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return nil, false, err
	}
	if task.Status != domain.TaskStatusPending || task.Result != nil {
		return nil, false, fmt.Errorf("%w: new tasks must be pending without a result", domain.ErrValidation)
	}

	var key any
	if task.IdempotencyKey != "" {
		key = task.IdempotencyKey
	}

	query := `
		INSERT INTO ai_tool_tasks (id, document_id, owner_id, tool_type, status, idempotency_key,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
		RETURNING ` + taskColumns

	created, err := scanTask(s.db.QueryRowContext(ctx, query,
		task.ID, task.DocumentID, task.OwnerID, task.ToolType, task.Status, key,
		task.CreatedAt, task.UpdatedAt,
	))
	if err == nil {
		log.Debug("task created",
			slog.String("task_id", created.ID.String()),
			slog.String("tool_type", string(created.ToolType)))
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to insert task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return nil, false, persistenceError("task", "create", err)
	}

	// ON CONFLICT swallowed the insert: either the idempotency key was reused
	// or, improbably, the id collided.
	if task.IdempotencyKey == "" {
		return nil, false, fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID)
	}
	existing, err := s.GetByIdempotencyKey(ctx, task.OwnerID, task.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	log.Info("idempotent task submission matched existing task",
		slog.String("task_id", existing.ID.String()),
		slog.String("idempotency_key", task.IdempotencyKey))
	return existing, false, nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.get(ctx, s.db, id, "")
}

func (s *PostgresTaskStore) get(ctx context.Context, db store.DBTX, id uuid.UUID, suffix string) (*domain.Task, error) {
	task, err := scanTask(db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM ai_tool_tasks WHERE id = $1`+suffix, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		return nil, persistenceError("task", "get", err)
	}
	return task, nil
}

// GetByIdempotencyKey implements store.TaskStore.GetByIdempotencyKey.
func (s *PostgresTaskStore) GetByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*domain.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM ai_tool_tasks WHERE owner_id = $1 AND idempotency_key = $2`,
		ownerID, key,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		return nil, persistenceError("task", "get_by_idempotency_key", err)
	}
	return task, nil
}

// List implements store.TaskStore.List.
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	var documentID, toolType any
	if filter.DocumentID != nil {
		documentID = *filter.DocumentID
	}
	if filter.ToolType != nil {
		toolType = string(*filter.ToolType)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM ai_tool_tasks
		WHERE owner_id = $1
		  AND ($2::uuid IS NULL OR document_id = $2)
		  AND ($3::text IS NULL OR tool_type = $3)
		ORDER BY created_at DESC, id DESC`,
		filter.OwnerID, documentID, toolType,
	)
	if err != nil {
		return nil, persistenceError("task", "list", err)
	}
	return collectTasks(rows)
}

// Transition implements store.TaskStore.Transition.
func (s *PostgresTaskStore) Transition(
	ctx context.Context,
	id uuid.UUID,
	workerID string,
	to domain.TaskStatus,
	result *domain.Result,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("task_id", id.String()))

	var updated *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		task, err := s.get(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}
		if err := store.CheckLease(task, workerID); err != nil {
			log.Warn("rejected transition from non-owner",
				slog.String("worker_id", workerID),
				slog.String("lease_owner", task.LeaseOwner))
			return err
		}
		from := task.Status
		if err := task.Transition(to, result, s.now()); err != nil {
			log.Warn("rejected task transition",
				slog.String("from", string(from)),
				slog.String("to", string(to)),
				slog.String("error", err.Error()))
			return err
		}
		if err := s.write(ctx, tx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("task transitioned", slog.String("status", string(updated.Status)))
	return updated, nil
}

func (s *PostgresTaskStore) write(ctx context.Context, tx store.DBTX, task *domain.Task) error {
	var result []byte
	if task.Result != nil {
		var err error
		if result, err = json.Marshal(task.Result); err != nil {
			return fmt.Errorf("%w: encode result: %v", domain.ErrValidation, err)
		}
	}
	var leaseUntil any
	if task.LeaseUntil != nil {
		leaseUntil = *task.LeaseUntil
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE ai_tool_tasks
		SET status = $2, result = $3, lease_owner = $4, lease_until = $5, updated_at = $6
		WHERE id = $1`,
		task.ID, task.Status, result, task.LeaseOwner, leaseUntil, task.UpdatedAt,
	)
	if err != nil {
		return persistenceError("task", "transition", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

// Claim implements store.TaskStore.Claim.
func (s *PostgresTaskStore) Claim(
	ctx context.Context,
	id uuid.UUID,
	workerID string,
	lease time.Duration,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	task, err := scanTask(s.db.QueryRowContext(ctx, `
		UPDATE ai_tool_tasks
		SET status = 'processing', lease_owner = $2, lease_until = $3,
			attempts = attempts + 1, updated_at = $4
		WHERE id = $1
		  AND (status = 'pending'
		       OR (status = 'processing'
		           AND (lease_until IS NULL OR lease_until < $4 OR lease_owner = $2)))
		RETURNING `+taskColumns,
		id, workerID, now.Add(lease), now,
	))
	if err == nil {
		log.Info("task claimed",
			slog.String("task_id", id.String()),
			slog.String("worker_id", workerID),
			slog.Int("attempt", task.Attempts))
		return task, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, persistenceError("task", "claim", err)
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: task %s is %s (lease owner %q)",
		store.ErrLeaseHeld, id, current.Status, current.LeaseOwner)
}

// ListStale implements store.TaskStore.ListStale.
func (s *PostgresTaskStore) ListStale(
	ctx context.Context,
	pendingBefore, now time.Time,
	limit int,
) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM ai_tool_tasks
		WHERE (status = 'pending' AND created_at < $1)
		   OR (status = 'processing' AND (lease_until IS NULL OR lease_until < $2))
		ORDER BY created_at
		LIMIT $3`,
		pendingBefore, now, limit,
	)
	if err != nil {
		return nil, persistenceError("task", "list_stale", err)
	}
	return collectTasks(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t          domain.Task
		result     []byte
		key        sql.NullString
		leaseUntil sql.NullTime
	)
	if err := row.Scan(
		&t.ID, &t.DocumentID, &t.OwnerID, &t.ToolType, &t.Status, &result,
		&key, &t.LeaseOwner, &leaseUntil, &t.Attempts, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r, err := artifact.DecodeResult(t.ToolType, t.Status, result)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, err)
	}
	t.Result = r
	t.IdempotencyKey = key.String
	if leaseUntil.Valid {
		until := leaseUntil.Time
		t.LeaseUntil = &until
	}
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]*domain.Task, error) {
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, persistenceError("task", "scan", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("task", "scan", err)
	}
	return tasks, nil
}
