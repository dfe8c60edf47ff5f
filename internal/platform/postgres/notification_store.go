package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/platform/logger"
	"github.com/phrazzld/studytools/internal/store"
)

const notificationColumns = `id, owner_id, type, title, message, related_task_id,
	related_entity_type, created_at`

// PostgresNotificationStore implements store.NotificationStore.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// NewPostgresNotificationStore creates a notification store on db.
func NewPostgresNotificationStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresNotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

// Create implements store.NotificationStore.Create. The unique index on
// related_task_id turns a second insert for the same task into
// store.ErrNotificationExists.
func (s *PostgresNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (related_task_id) DO NOTHING`,
		n.ID, n.OwnerID, n.Type, n.Title, n.Message, n.RelatedTaskID, n.RelatedEntityType, n.CreatedAt,
	)
	if err != nil {
		log.Error("failed to insert notification",
			slog.String("task_id", n.RelatedTaskID.String()),
			slog.String("error", err.Error()))
		return persistenceError("notification", "create", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return store.ErrNotificationExists
	}
	return nil
}

// GetByTaskID implements store.NotificationStore.GetByTaskID.
func (s *PostgresNotificationStore) GetByTaskID(ctx context.Context, taskID uuid.UUID) (*domain.Notification, error) {
	n, err := scanNotification(s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE related_task_id = $1`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, persistenceError("notification", "get", err)
	}
	return n, nil
}

// ListByOwner implements store.NotificationStore.ListByOwner.
func (s *PostgresNotificationStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, persistenceError("notification", "list", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, persistenceError("notification", "scan", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("notification", "scan", err)
	}
	return out, nil
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(&n.ID, &n.OwnerID, &n.Type, &n.Title, &n.Message,
		&n.RelatedTaskID, &n.RelatedEntityType, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
