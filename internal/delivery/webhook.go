package delivery

import (
	"encoding/json"
	"fmt"
)

// TextEvent is an inbound text message extracted from a webhook payload.
type TextEvent struct {
	UserID     string
	ReplyToken string
	Text       string
}

// ParseTextEvents returns the text message events of a webhook body.
// Other event and message types are skipped.
func ParseTextEvents(body []byte) ([]TextEvent, error) {
	var payload struct {
		Events []struct {
			Type       string `json:"type"`
			ReplyToken string `json:"replyToken"`
			Source     struct {
				UserID string `json:"userId"`
			} `json:"source"`
			Message struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}

	var events []TextEvent
	for _, e := range payload.Events {
		if e.Type != "message" || e.Message.Type != "text" || e.Source.UserID == "" {
			continue
		}
		events = append(events, TextEvent{
			UserID:     e.Source.UserID,
			ReplyToken: e.ReplyToken,
			Text:       e.Message.Text,
		})
	}
	return events, nil
}
