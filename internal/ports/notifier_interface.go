package ports

import (
	"context"
	"signature-web-server/internal/model"
)

// NotificationQueue : очередь уведомлений подписантам, доставка вне сервиса
type NotificationQueue interface {
	Enqueue(ctx context.Context, notification model.Notification) error
}

// SecurityNotifier : сообщает об обновлении токенов с нового IP
type SecurityNotifier interface {
	NotifyNewIP(ctx context.Context, userUUID, newIP, oldIP string) error
}
