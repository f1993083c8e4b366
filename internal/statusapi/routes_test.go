package statusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-board-stream/internal/boardstate"
	"github.com/park285/cheese-board-stream/internal/session"
	"github.com/park285/cheese-board-stream/internal/streamsup"
	"github.com/park285/cheese-board-stream/pkg/boarddto"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func liveView() session.View {
	return session.View{
		SessionID: "s1",
		Snapshot: boardstate.Snapshot{
			GameID:           "g1",
			MyColor:          boardstate.Black,
			OpponentName:     "bob",
			OpponentRating:   1500,
			IsMyTurn:         true,
			Status:           boardstate.StatusStarted,
			Moves:            []string{"e2e4"},
			LastOpponentMove: "e2e4",
		},
		Events: streamsup.StateIdle,
		Game:   streamsup.StateStreaming,
	}
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	return rec.Code
}

func TestSnapshotEndpoint(t *testing.T) {
	h := Routes(liveView, func() time.Time { return fixedNow })

	var snap boarddto.Snapshot
	code := get(t, h, "/snapshot", &snap)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "g1", snap.GameID)
	require.Equal(t, "s1", snap.SessionID)
	require.Equal(t, "black", snap.MyColor)
	require.True(t, snap.IsMyTurn)
	require.Equal(t, []string{"e2e4"}, snap.MovesUCI)
	require.Equal(t, []string{"e4"}, snap.MovesSAN)
	require.Equal(t, 1, snap.MoveCount)
	require.True(t, snap.UpdatedAt.Equal(fixedNow))
}

func TestSnapshotWithoutGame(t *testing.T) {
	h := Routes(func() session.View {
		return session.View{SessionID: "s1", Snapshot: boardstate.Empty()}
	}, nil)

	var body boarddto.DomainError
	code := get(t, h, "/snapshot", &body)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "no_active_game", body.Code)
}

func TestChannelsEndpoint(t *testing.T) {
	var states boarddto.ChannelStates
	code := get(t, Routes(liveView, nil), "/channels", &states)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, boarddto.ChannelStates{Events: "idle", Game: "streaming"}, states)
}

func TestHealthz(t *testing.T) {
	var health boarddto.Health
	code := get(t, Routes(liveView, nil), "/healthz", &health)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "streaming", health.Channels.Game)

	failed := func() session.View {
		v := liveView()
		v.Game = streamsup.StateGivenUp
		v.Failure = fmt.Errorf("game channel: %w", streamsup.ErrRetryBudgetExhausted)
		v.Ended = true
		return v
	}
	code = get(t, Routes(failed, nil), "/healthz", &health)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "failed", health.Status)
	require.True(t, health.Ended)
	require.Contains(t, health.Failure, "retry budget exhausted")
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	Routes(liveView, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/moves", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerLifecycle(t *testing.T) {
	srv := NewServer("127.0.0.1:0", liveView, nil)
	addr, err := srv.Start()
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/channels")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	_, err = http.Get("http://" + addr + "/channels")
	require.Error(t, err)
}
