package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wyfcoding/bookstore/internal/notification/domain"
	"github.com/wyfcoding/bookstore/pkg/logger"
)

// WebhookSender 向固定回调地址推送通知
type WebhookSender struct {
	client *http.Client
	url    string
}

// NewWebhookSender 创建 webhook 发送器；url 为空时发送为空操作
func NewWebhookSender(url string) domain.Sender {
	return &WebhookSender{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
	}
}

// Send 推送通知到 webhook
func (s *WebhookSender) Send(ctx context.Context, target, subject, content string) error {
	if s.url == "" {
		return nil
	}

	payload := map[string]string{
		"target": target,
		"text":   fmt.Sprintf("*%s*\n%s", subject, content),
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	logger.Debug(ctx, "webhook delivered", "url", s.url, "subject", subject)
	return nil
}
