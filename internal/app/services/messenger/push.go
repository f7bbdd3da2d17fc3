package messenger

import "strings"

// Notification action identifiers surfaced on push alerts.
const (
	ActionOpen    = "open"
	ActionDismiss = "dismiss"
)

// PushAlert converts an inbound push payload (plain text) into the
// broadcast notification shown to users. Every alert carries an open
// action targeting the application root and a dismiss action.
func PushAlert(payload string) Message {
	body := strings.TrimSpace(payload)
	if body == "" {
		body = "You have a new notification."
	}
	return Message{
		Kind: KindPushAlert,
		Payload: map[string]any{
			"body": body,
			"actions": []map[string]string{
				{"action": ActionOpen, "target": "/"},
				{"action": ActionDismiss},
			},
		},
	}
}
