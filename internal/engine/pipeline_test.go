package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/companion/internal/config"
	"github.com/lazypower/companion/internal/delivery"
	"github.com/lazypower/companion/internal/llm"
	"github.com/lazypower/companion/internal/store"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func newTestPipeline(t *testing.T, client llm.Client, d delivery.Deliverer) (*Pipeline, *store.DB, *sleepRecorder) {
	t.Helper()
	db := testDB(t)
	cfg := config.Default()
	p := NewPipeline(db, &cfg, time.UTC, client, d)
	rec := &sleepRecorder{}
	p.Sleep = rec.Sleep
	p.Jitter = lowJitter
	return p, db, rec
}

func waitPipeline(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))
}

func TestHandleDeliversReply(t *testing.T) {
	client := &llm.MockClient{Response: &llm.Response{Content: "  พักก่อนนะ  "}}
	out := &delivery.MockDeliverer{}
	p, db, rec := newTestPipeline(t, client, out)

	require.NoError(t, p.Handle("U1", "เหนื่อยมาก"))
	waitPipeline(t, p)

	sent := out.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, delivery.Sent{To: "U1", Text: "พักก่อนนะ", Push: true}, sent[0])

	require.Equal(t, 1, client.CallCount())
	call := client.Calls[0]
	require.Len(t, call, 2)
	assert.Equal(t, "system", call[0].Role)
	assert.Equal(t, llm.Message{Role: store.RoleUser, Content: "เหนื่อยมาก"}, call[1])
	assert.Equal(t, llm.ReplyOptions(config.Default().LLM), client.Opts[0])

	turns, err := db.RecentTurns("U1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, store.RoleUser, turns[0].Role)
	assert.Equal(t, store.RoleAssistant, turns[1].Role)
	assert.Equal(t, "พักก่อนนะ", turns[1].Content)

	u, err := db.GetUser("U1")
	require.NoError(t, err)
	assert.Equal(t, store.MoodSad, u.Mood)

	require.Len(t, rec.delays, 1)
	assert.Greater(t, rec.delays[0], time.Duration(0))
}

func TestReplyFallsBackOnGenerationError(t *testing.T) {
	client := &llm.MockClient{Err: llm.ErrCompletion}
	p, db, _ := newTestPipeline(t, client, &delivery.MockDeliverer{})

	state, err := p.Record("U1", "วันนี้ไม่สบายเลย ปวดหัวมาก")
	require.NoError(t, err)

	reply, err := p.Reply(context.Background(), "U1", "วันนี้ไม่สบายเลย ปวดหัวมาก", *state)
	require.NoError(t, err)
	assert.Equal(t, llm.ReplyFallback, reply)

	u, err := db.GetUser("U1")
	require.NoError(t, err)
	assert.Equal(t, store.MoodWorried, u.Mood, "state is saved even when generation fails")

	n, err := db.CountMemories("U1", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	turns, err := db.RecentTurns("U1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, llm.ReplyFallback, turns[1].Content)
}

func TestReplyFallsBackOnEmptyContent(t *testing.T) {
	client := &llm.MockClient{Response: &llm.Response{Content: "   "}}
	p, _, _ := newTestPipeline(t, client, &delivery.MockDeliverer{})

	state, err := p.Record("U1", "ฮัลโหล")
	require.NoError(t, err)
	reply, err := p.Reply(context.Background(), "U1", "ฮัลโหล", *state)
	require.NoError(t, err)
	assert.Equal(t, llm.ReplyFallback, reply)
}

func TestHandleDeliveryFailureKeepsHistory(t *testing.T) {
	client := &llm.MockClient{Response: &llm.Response{Content: "ฝันดีนะ"}}
	out := &delivery.MockDeliverer{Err: errors.New("line is down")}
	p, db, _ := newTestPipeline(t, client, out)

	require.NoError(t, p.Handle("U1", "ไปนอนแล้วนะ"))
	waitPipeline(t, p)

	assert.Len(t, out.Sent(), 1, "delivery is attempted once")
	turns, err := db.RecentTurns("U1", 10)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestHandleConcurrentUsers(t *testing.T) {
	client := &llm.MockClient{Response: &llm.Response{Content: "จ้า"}}
	out := &delivery.MockDeliverer{}
	p, _, _ := newTestPipeline(t, client, out)

	users := []string{"A", "B", "C", "D"}
	for _, u := range users {
		require.NoError(t, p.Handle(u, "สวัสดีตอนเช้า"))
	}
	waitPipeline(t, p)

	got := map[string]bool{}
	for _, s := range out.Sent() {
		got[s.To] = true
	}
	for _, u := range users {
		assert.True(t, got[u], "reply for %s", u)
	}
}
