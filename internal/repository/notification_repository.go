package repository

import (
	"context"
	"database/sql"
	"time"

	jsoniter "github.com/json-iterator/go"

	"gridbot/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NotificationRepository - журнал уведомлений бота
//
// Meta хранится как JSONB: произвольные детали события
// (цена, уровень, причина срабатывания).
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create записывает уведомление
func (r *NotificationRepository) Create(ctx context.Context, notif *models.Notification) error {
	query := `
		INSERT INTO notifications (timestamp, type, severity, symbol, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if notif.Timestamp.IsZero() {
		notif.Timestamp = time.Now()
	}

	meta, err := marshalMeta(notif.Meta)
	if err != nil {
		return err
	}

	return r.db.QueryRowContext(
		ctx,
		query,
		notif.Timestamp,
		notif.Type,
		notif.Severity,
		notif.Symbol,
		notif.Message,
		meta,
	).Scan(&notif.ID)
}

// List возвращает последние уведомления, новые первыми
func (r *NotificationRepository) List(ctx context.Context, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, timestamp, type, severity, symbol, message, meta
		FROM notifications
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// ListByType возвращает уведомления заданного типа
func (r *NotificationRepository) ListByType(ctx context.Context, notifType string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, timestamp, type, severity, symbol, message, meta
		FROM notifications
		WHERE type = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, notifType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// DeleteOlderThan удаляет уведомления старше указанного момента
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE timestamp < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func scanNotifications(rows *sql.Rows) ([]*models.Notification, error) {
	var notifications []*models.Notification
	for rows.Next() {
		notif := &models.Notification{}
		var symbol sql.NullString
		var meta []byte

		err := rows.Scan(
			&notif.ID,
			&notif.Timestamp,
			&notif.Type,
			&notif.Severity,
			&symbol,
			&notif.Message,
			&meta,
		)
		if err != nil {
			return nil, err
		}

		notif.Symbol = symbol.String
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &notif.Meta); err != nil {
				return nil, err
			}
		}

		notifications = append(notifications, notif)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

// marshalMeta сериализует Meta в JSON, nil для пустой карты
func marshalMeta(meta map[string]interface{}) (interface{}, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return data, nil
}
