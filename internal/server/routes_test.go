package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lazypower/companion/internal/delivery"
	"github.com/lazypower/companion/internal/store"
)

const webhookBody = `{
  "destination": "Ubot",
  "events": [
    {
      "type": "message",
      "replyToken": "rt-1",
      "source": {"type": "user", "userId": "U42"},
      "message": {"type": "text", "id": "1", "text": "เหนื่อยมาก"}
    },
    {
      "type": "message",
      "replyToken": "rt-2",
      "source": {"type": "user", "userId": "U42"},
      "message": {"type": "sticker", "id": "2"}
    }
  ]
}`

func (e *testEnv) callback(t *testing.T, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/callback", strings.NewReader(body))
	req.Header.Set("X-Line-Signature", signature)
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)
	return w
}

func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.pipeline.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestCallbackHandlesTextMessages(t *testing.T) {
	env := testServer(t)

	w := env.callback(t, webhookBody, delivery.Sign(testSecret, []byte(webhookBody)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	env.drain(t)

	u, err := env.db.GetUser("U42")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u == nil {
		t.Fatal("user should exist after callback")
	}
	if u.Mood != store.MoodSad {
		t.Errorf("Mood = %q, want sad", u.Mood)
	}

	sent := env.out.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1 (stickers are ignored)", len(sent))
	}
	if sent[0].To != "U42" || !sent[0].Push {
		t.Errorf("sent = %+v, want push to U42", sent[0])
	}
}

func TestCallbackRejectsBadSignature(t *testing.T) {
	env := testServer(t)

	w := env.callback(t, webhookBody, "bm90LWEtc2lnbmF0dXJl")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	u, _ := env.db.GetUser("U42")
	if u != nil {
		t.Error("rejected webhook must not touch state")
	}
}

func TestCallbackRejectsBadJSON(t *testing.T) {
	env := testServer(t)

	body := `{"events": [`
	w := env.callback(t, body, delivery.Sign(testSecret, []byte(body)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetUser(t *testing.T) {
	env := testServer(t)

	w := env.do("GET", "/api/users/nobody")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown user status = %d, want 404", w.Code)
	}

	if _, err := env.db.GetOrCreateUser("U1"); err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	w = env.do("GET", "/api/users/U1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got userView
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.UserID != "U1" || got.Mood != "calm" || got.Energy != 75 {
		t.Errorf("user = %+v", got)
	}
	if got.Attachment == "" {
		t.Error("attachment should be set")
	}
}

func TestListUsers(t *testing.T) {
	env := testServer(t)
	for _, id := range []string{"B", "A"} {
		if _, err := env.db.GetOrCreateUser(id); err != nil {
			t.Fatalf("GetOrCreateUser: %v", err)
		}
	}

	w := env.do("GET", "/api/users")
	var got []userView
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].UserID != "A" || got[1].UserID != "B" {
		t.Errorf("users = %+v, want A then B", got)
	}
}

func TestMoodHistoryEndpoint(t *testing.T) {
	env := testServer(t)
	if _, err := env.pipeline.Emotion.Evaluate("U1", "ขอบคุณนะ"); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	w := env.do("GET", "/api/users/U1/moods")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0]["mood"] != "happy" {
		t.Errorf("moods = %v", got)
	}

	w = env.do("GET", "/api/users/U1/moods?limit=zero")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestMemoriesAndPromptEndpoints(t *testing.T) {
	env := testServer(t)
	if _, err := env.db.GetOrCreateUser("U1"); err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	if _, err := env.pipeline.Memories.Consider("U1", "วันนี้เป็นวันสำคัญของเรา"); err != nil {
		t.Fatalf("Consider: %v", err)
	}

	w := env.do("GET", "/api/users/U1/memories")
	var mems []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &mems); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(mems) != 1 || mems[0]["importance"] != float64(9) {
		t.Errorf("memories = %v", mems)
	}

	w = env.do("GET", "/api/users/U1/prompt")
	var prompt map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &prompt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(prompt["prompt"], "วันนี้เป็นวันสำคัญของเรา") {
		t.Errorf("prompt should include the memory, got %q", prompt["prompt"])
	}
}
