package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/landmark-intel/docpatch/internal/config"
	"github.com/landmark-intel/docpatch/internal/engine"
)

// mockCompletionServer answers every chat completion request with content.
func mockCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestPlanner(t *testing.T, baseURL string) *Planner {
	t.Helper()
	p, err := New(config.PlannerConfig{
		APIKey:  "test-key",
		BaseURL: baseURL + "/v1",
		Model:   "test-model",
	}, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestPlan(t *testing.T) {
	t.Run("ParsesOperations", func(t *testing.T) {
		srv := mockCompletionServer(t, `[{"type":"replace_all","old":"a","new":"b"}]`)
		defer srv.Close()

		ops, err := newTestPlanner(t, srv.URL).Plan(context.Background(), "document a", "replace a with b")
		require.NoError(t, err)
		require.Len(t, ops, 1)
		assert.Equal(t, engine.ReplaceAll{Old: "a", New: "b"}, ops[0])
	})

	t.Run("StripsCodeFence", func(t *testing.T) {
		srv := mockCompletionServer(t, "```json\n[{\"type\":\"add_after\",\"anchor\":\"x\",\"content\":\"y\"}]\n```")
		defer srv.Close()

		ops, err := newTestPlanner(t, srv.URL).Plan(context.Background(), "x", "append")
		require.NoError(t, err)
		require.Len(t, ops, 1)
		assert.Equal(t, engine.AddAfter{Anchor: "x", Content: "y"}, ops[0])
	})

	t.Run("UnparseableResponse", func(t *testing.T) {
		srv := mockCompletionServer(t, "sorry, I cannot help with that")
		defer srv.Close()

		_, err := newTestPlanner(t, srv.URL).Plan(context.Background(), "x", "edit")
		assert.Error(t, err)
	})
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(config.PlannerConfig{}, nil)
	assert.Error(t, err)
}
