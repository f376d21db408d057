package utils

import (
	"lms/config"
	"log"

	"github.com/go-resty/resty/v2"
)

// NotifyModuleUnlocked posts an unlock event to the notification service.
// Fire-and-forget: the unlock itself is already committed and guarded by
// email_sent_at, so a delivery failure is only logged.
func NotifyModuleUnlocked(userID, moduleID uint, moduleTitle string) {
	webhookURL := config.AppConfig.NotifyWebhookURL
	if webhookURL == "" {
		return
	}

	go func() {
		client := resty.New()
		resp, err := client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]interface{}{
				"event":        "module_unlocked",
				"user_id":      userID,
				"module_id":    moduleID,
				"module_title": moduleTitle,
			}).
			Post(webhookURL)
		if err != nil {
			log.Printf("[NOTIFIER] Error posting unlock event for user %d module %d: %v", userID, moduleID, err)
			return
		}
		if resp.IsError() {
			log.Printf("[NOTIFIER] Unlock event for user %d module %d rejected: %s", userID, moduleID, resp.Status())
		}
	}()
}
