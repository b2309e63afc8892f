package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxsales/copilot/internal/api/handlers"
	"github.com/wxsales/copilot/internal/api/router"
	"github.com/wxsales/copilot/internal/knowledge"
	"github.com/wxsales/copilot/internal/listener"
	"github.com/wxsales/copilot/internal/queue"
	"github.com/wxsales/copilot/internal/reply"
	"github.com/wxsales/copilot/pkg/logging"
)

type fakeSuggestionStore struct {
	suggestions map[string]*reply.Suggestion
	selected    map[string]string
	edited      map[string]string
}

func newFakeSuggestionStore() *fakeSuggestionStore {
	return &fakeSuggestionStore{
		suggestions: make(map[string]*reply.Suggestion),
		selected:    make(map[string]string),
		edited:      make(map[string]string),
	}
}

func (f *fakeSuggestionStore) Insert(ctx context.Context, s *reply.Suggestion) (string, error) {
	f.suggestions[s.ID] = s
	return s.ID, nil
}

func (f *fakeSuggestionStore) Get(ctx context.Context, id string) (*reply.Suggestion, error) {
	return f.suggestions[id], nil
}

func (f *fakeSuggestionStore) SetSelected(ctx context.Context, id, style string) error {
	f.selected[id] = style
	return nil
}

func (f *fakeSuggestionStore) SetEdited(ctx context.Context, id, edited string) error {
	f.edited[id] = edited
	return nil
}

func (f *fakeSuggestionStore) MarkSent(ctx context.Context, id string) error { return nil }

func (f *fakeSuggestionStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]reply.Suggestion, error) {
	out := make([]reply.Suggestion, 0)
	for _, s := range f.suggestions {
		if s.SessionID == sessionID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSuggestionStore) VariantStats(ctx context.Context, sessionID string) ([]reply.VariantStat, error) {
	counts := make(map[string]int)
	for _, style := range f.selected {
		counts[style]++
	}
	stats := make([]reply.VariantStat, 0, len(counts))
	for style, n := range counts {
		stats = append(stats, reply.VariantStat{Style: style, Count: n})
	}
	return stats, nil
}

type fakeGoldenStore struct {
	upserts int
}

func (f *fakeGoldenStore) Upsert(ctx context.Context, promptID int64, question, replyText string) error {
	f.upserts++
	return nil
}

func (f *fakeGoldenStore) TopByUsage(ctx context.Context, promptID int64, limit int) ([]reply.GoldenReply, error) {
	return nil, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "价格") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

type testEnv struct {
	server      *httptest.Server
	tasks       *queue.MemoryStore
	suggestions *fakeSuggestionStore
	golden      *fakeGoldenStore
	history     *reply.HistoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logging.NewWithWriter("error", io.Discard)
	tasks := queue.NewMemoryStore()
	suggestions := newFakeSuggestionStore()
	golden := &fakeGoldenStore{}
	learner := reply.NewFeedbackLearner(suggestions, golden, logger)

	mr := miniredis.RunT(t)
	history := reply.NewHistoryStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)

	index := knowledge.NewIndex(fakeEmbedder{})
	index.Add(knowledge.Chunk{ID: "c1", ScopeID: knowledge.GlobalScope, Content: "价格 998 元", Source: "pricing", Embedding: []float32{1, 0}})

	h := handlers.New(logger, tasks, nil, nil, suggestions, learner, history, index, nil, fakeEmbedder{}, listener.NewBuffer())
	srv := httptest.NewServer(router.New(h, router.Options{
		Logger:         logger,
		AllowedOrigins: []string{"*"},
	}))
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, tasks: tasks, suggestions: suggestions, golden: golden, history: history}
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	body := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
}

func TestListTasksRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/tasks/")
	require.NoError(t, err)
	body := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "VALIDATION_ERROR", body["error_code"])
}

func TestGetTaskNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/tasks/nope")
	require.NoError(t, err)
	body := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["error_code"])
}

func TestMarkTaskSent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.tasks.Enqueue(ctx, "客户A", "客户A", "价格多少")
	require.NoError(t, err)
	_, err = env.tasks.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, env.tasks.Complete(ctx, id, queue.ReplyOptions{Professional: "好的"}))

	resp, err := http.Post(env.server.URL+"/api/tasks/"+id+"/sent", "application/json", nil)
	require.NoError(t, err)
	body := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	task, err := env.tasks.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusSent, task.Status)
	assert.Equal(t, true, body["success"])
}

func TestSelectSuggestionRejectsUnknownStyle(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/suggestions/sg-1/select", "application/json",
		strings.NewReader(`{"style":"sarcastic"}`))
	require.NoError(t, err)
	body := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["error_code"])
}

func TestSelectSuggestionRecordsChoice(t *testing.T) {
	env := newTestEnv(t)
	env.suggestions.suggestions["sg-1"] = &reply.Suggestion{
		ID:           "sg-1",
		SessionID:    "客户A",
		Professional: "这款的保质期是18个月",
	}

	resp, err := http.Post(env.server.URL+"/api/suggestions/sg-1/select", "application/json",
		strings.NewReader(`{"style":"professional"}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "professional", env.suggestions.selected["sg-1"])
}

func TestSelectSuggestionMissingReturns404(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/suggestions/nope/select", "application/json",
		strings.NewReader(`{"style":"professional"}`))
	require.NoError(t, err)
	body := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["error_code"])
}

func TestSelectSuggestionAppendsAssistantTurn(t *testing.T) {
	env := newTestEnv(t)
	env.suggestions.suggestions["sg-1"] = &reply.Suggestion{
		ID:           "sg-1",
		SessionID:    "客户A",
		Aggressive:   "现在下单立减50",
		Professional: "这款的保质期是18个月",
	}

	resp, err := http.Post(env.server.URL+"/api/suggestions/sg-1/select", "application/json",
		strings.NewReader(`{"style":"aggressive"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The dispatched reply must reach the transcript the next
	// generation loads its context from.
	msgs, err := env.history.Load(context.Background(), "客户A", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, reply.RoleAssistant, msgs[0].Role)
	assert.Equal(t, "现在下单立减50", msgs[0].Content)
}

func TestSelectSuggestionPrefersEditedContent(t *testing.T) {
	env := newTestEnv(t)
	env.suggestions.suggestions["sg-2"] = &reply.Suggestion{
		ID:            "sg-2",
		SessionID:     "客户B",
		Conservative:  "您可以先了解一下",
		EditedContent: "您可以先了解一下，有问题随时问我",
	}

	resp, err := http.Post(env.server.URL+"/api/suggestions/sg-2/select", "application/json",
		strings.NewReader(`{"style":"conservative"}`))
	require.NoError(t, err)
	resp.Body.Close()

	msgs, err := env.history.Load(context.Background(), "客户B", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "您可以先了解一下，有问题随时问我", msgs[0].Content)
}

func TestFeedbackPromotesGoldenReply(t *testing.T) {
	env := newTestEnv(t)

	payload := `{"session_id":"客户A","prompt_id":7,"query":"价格多少","original":"", "final":"我们的价格是998元，现在下单还有赠品","action":"ACCEPTED"}`
	resp, err := http.Post(env.server.URL+"/api/feedback", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, env.golden.upserts)
}

func TestFeedbackRejectsUnknownAction(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/feedback", "application/json",
		strings.NewReader(`{"action":"MAYBE"}`))
	require.NoError(t, err)
	body := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["error_code"])
	assert.Equal(t, 0, env.golden.upserts)
}

func TestSearchKnowledge(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/knowledge/search?q=" + "%E4%BB%B7%E6%A0%BC")
	require.NoError(t, err)
	body := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	hit := data[0].(map[string]any)
	assert.Equal(t, "pricing", hit["source"])
}

func TestIngestLabels(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/labels", "application/json",
		strings.NewReader(`{"labels":["客户A 1条未读 你好 14:02","客户B 好的 14:03"]}`))
	require.NoError(t, err)
	body := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(2), data["received"])
}

func TestProfileMutationRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/profiles/", "application/json",
		strings.NewReader(`{"name":"测试"}`))
	require.NoError(t, err)
	body := decodeEnvelope(t, resp)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTH_ERROR", body["error_code"])
}
