// Package delivery sends text to chat users over the LINE Messaging API.
package delivery

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrDelivery wraps every transport failure.
var ErrDelivery = errors.New("delivery failed")

// Deliverer sends messages to users.
//
// Push has no delivery window and is the only variant safe to use after a
// multi-second delay. Reply needs a reply token that expires shortly after
// the inbound event.
type Deliverer interface {
	Push(ctx context.Context, userID, text string) error
	Reply(ctx context.Context, replyToken, text string) error
}

// LINE is a minimal LINE Messaging API client.
type LINE struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewLINE creates a LINE client. baseURL is normally https://api.line.me.
func NewLINE(baseURL, accessToken string) *LINE {
	return &LINE{
		baseURL:     baseURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Push sends a text message to a user.
func (l *LINE) Push(ctx context.Context, userID, text string) error {
	return l.post(ctx, "/v2/bot/message/push", map[string]any{
		"to":       userID,
		"messages": []textMessage{{Type: "text", Text: text}},
	})
}

// Reply answers an inbound event using its reply token.
func (l *LINE) Reply(ctx context.Context, replyToken, text string) error {
	return l.post(ctx, "/v2/bot/message/reply", map[string]any{
		"replyToken": replyToken,
		"messages":   []textMessage{{Type: "text", Text: text}},
	})
}

func (l *LINE) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.accessToken)

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: line api: %w", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: line api status %d: %s", ErrDelivery, resp.StatusCode, respBody)
	}
	return nil
}

// VerifySignature checks a webhook body against its X-Line-Signature header.
func VerifySignature(channelSecret string, body []byte, signature string) bool {
	if channelSecret == "" || signature == "" {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// Sign computes the X-Line-Signature value for a body.
func Sign(channelSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
