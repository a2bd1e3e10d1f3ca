package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/cirkle/internal/domain"
)

func TestPomodoro_Transitions(t *testing.T) {
	f := newAPI(t)
	_, token := f.login(t, "ana")
	base := "/api/v1/groups/" + f.createGroup(t, token, "Study") + "/pomodoro"

	var st domain.TimerState
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, base, token, nil, &st))
	assert.Equal(t, domain.TimerState{RemainingSeconds: 120, ConfiguredDurationSeconds: 120}, st)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/start", token, nil, &st))
	assert.True(t, st.Running)

	f.sched.TickN(10)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPut, base+"/duration", token, map[string]int{"seconds": 60}, nil))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/toggle", token, nil, &st))
	assert.False(t, st.Running)
	assert.Equal(t, 110, st.RemainingSeconds)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/reset", token, nil, &st))
	assert.Equal(t, 120, st.RemainingSeconds)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, base+"/duration", token, map[string]int{"seconds": 60}, &st))
	assert.Equal(t, 60, st.ConfiguredDurationSeconds)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/pause", token, nil, &st))
	assert.False(t, st.Running)
}

func TestPomodoro_DurationValidation(t *testing.T) {
	f := newAPI(t)
	_, token := f.login(t, "ana")
	base := "/api/v1/groups/" + f.createGroup(t, token, "Study") + "/pomodoro"

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, base+"/duration", token, map[string]int{"seconds": 0}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, base+"/duration", token, map[string]int{"seconds": -5}, nil))

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, base+"/duration", token, map[string]string{}, &body))
	assert.Contains(t, body.Fields, "seconds")
}

func TestPomodoro_CompletionUpdatesLeaderboard(t *testing.T) {
	f := newAPI(t)
	_, anaToken := f.login(t, "ana")
	ben, benToken := f.login(t, "ben")
	id := f.createGroup(t, anaToken, "Study")
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/groups/"+id+"/join", benToken, nil, nil))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/groups/"+id+"/pomodoro/start", benToken, nil, nil))
	f.sched.TickN(120)

	var board struct {
		Scores []domain.ScoreRecord `json:"scores"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/groups/"+id+"/leaderboard", anaToken, nil, &board))
	require.Len(t, board.Scores, 1)
	assert.Equal(t, ben.ID, board.Scores[0].UserID)
	assert.Equal(t, 2, board.Scores[0].Score)
	assert.Equal(t, "ben", board.Scores[0].UserName)
}

func TestPomodoro_End(t *testing.T) {
	f := newAPI(t)
	_, token := f.login(t, "ana")
	base := "/api/v1/groups/" + f.createGroup(t, token, "Study") + "/pomodoro"

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, base, token, nil, nil))
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/start", token, nil, nil))
	assert.Equal(t, 1, f.sched.Active())
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, base, token, nil, nil))
	assert.Equal(t, 0, f.sched.Active())
}

func TestLeaderboard_RequiresMembership(t *testing.T) {
	f := newAPI(t)
	_, anaToken := f.login(t, "ana")
	_, benToken := f.login(t, "ben")
	id := f.createGroup(t, anaToken, "Study")

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/v1/groups/"+id+"/leaderboard", benToken, nil, nil))

	var board struct {
		Scores []domain.ScoreRecord `json:"scores"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/groups/"+id+"/leaderboard", anaToken, nil, &board))
	assert.NotNil(t, board.Scores)
	assert.Empty(t, board.Scores)
}
