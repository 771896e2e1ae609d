package clients_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/clients/aianalysis"
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/analysis"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"
)

func newAIClient(t *testing.T, handler http.HandlerFunc) *aianalysis.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, cleanup, err := aianalysis.NewClient(context.Background(), configloader.AIConfig{
		Endpoint: srv.URL,
		Timeout:  configloader.Duration(2 * time.Second),
	}, log.NewStdLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return client
}

func TestAIClient_Submit(t *testing.T) {
	var body map[string]any
	client := newAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/analyze", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"execution_id":"exec-123","status":"pending","message":"queued"}`))
	})

	id, err := client.Submit(context.Background(), &analysis.Request{
		Utterances: []analysis.Utterance{{Speaker: "A", Text: "안녕", Timestamp: 0}},
		ChallengeSpecs: []analysis.ChallengeSpec{{
			ChallengeID: "c-1", Title: "칭찬하기", Goal: "하루 3번",
			Actions: []analysis.ActionSpec{{ActionID: "a-1", Content: "눈 맞추기"}},
		}},
		Meta: analysis.Meta{ChildName: "민지", ChildGender: "FEMALE", ChildBirthDate: "2020-05-01", ContextTag: "PLAY"},
	})
	require.NoError(t, err)
	require.Equal(t, "exec-123", id)

	require.Contains(t, body, "utterances_ko")
	require.Contains(t, body, "challenge_specs")
	meta := body["meta"].(map[string]any)
	require.Equal(t, "민지", meta["childName"])
	require.Equal(t, "2020-05-01", meta["childBirthDate"])
	specs := body["challenge_specs"].([]any)
	action := specs[0].(map[string]any)["actions"].([]any)[0].(map[string]any)
	require.Equal(t, "a-1", action["actionId"])
}

func TestAIClient_SubmitEmptyExecutionID(t *testing.T) {
	client := newAIClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"execution_id":"","status":"error"}`))
	})
	_, err := client.Submit(context.Background(), &analysis.Request{})
	require.True(t, errors.Is(err, aianalysis.ErrEmptyExecutionID))
}

func TestAIClient_Poll(t *testing.T) {
	client := newAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/status/exec-9", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"execution_id":"exec-9","status":"running","analysis_status":"STYLE",
			"progress_percentage":40,"status_message":"analyzing style","result":null}`))
	})

	snap, err := client.Poll(context.Background(), "exec-9")
	require.NoError(t, err)
	require.Equal(t, analysis.ExecutionRunning, snap.State())
	require.Equal(t, "STYLE", snap.AnalysisStatus)
	require.NotNil(t, snap.ProgressPercentage)
	require.EqualValues(t, 40, *snap.ProgressPercentage)
	require.False(t, snap.HasResult())
}

func TestAIClient_PollServerError(t *testing.T) {
	client := newAIClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.Poll(context.Background(), "exec-9")
	require.Error(t, err)
}
