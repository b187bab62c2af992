package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"signature-web-server/config"
	"signature-web-server/internal/util"
	"time"

	"go.uber.org/zap"
)

type newIPPayload struct {
	UserUUID  string    `json:"user_id"`
	NewIP     string    `json:"new_ip"`
	OldIP     string    `json:"old_ip"`
	Timestamp time.Time `json:"timestamp"`
}

// WebhookNotifier : POST на webhook при обновлении токенов с нового IP. Пустой URL отключает отправку
type WebhookNotifier struct {
	client *http.Client
	url    string
}

func NewWebhookNotifier(cfg *config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{client: &http.Client{Timeout: cfg.Timeout.Duration}, url: cfg.URL}
}

func (n *WebhookNotifier) NotifyNewIP(ctx context.Context, userUUID, newIP, oldIP string) error {
	if n.url == "" {
		zap.L().Debug("webhook не настроен, уведомление пропущено", zap.String("user", userUUID))
		return nil
	}

	body, err := json.Marshal(newIPPayload{UserUUID: userUUID, NewIP: newIP, OldIP: oldIP, Timestamp: time.Now().UTC()})
	if err != nil {
		return util.LogError("[Webhook] ошибка сериализации", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return util.LogError("[Webhook] ошибка формирования запроса", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return util.LogError("[Webhook] ошибка отправки", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("[Webhook] неожиданный статус ответа: %d", resp.StatusCode)
	}
	return nil
}
