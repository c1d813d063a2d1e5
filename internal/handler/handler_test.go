package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"imin-server/config"
	"imin-server/internal/model"
	"imin-server/internal/repository/memory"
	"imin-server/internal/service"
	"imin-server/pkg/clock"
	"imin-server/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
	Data    json.RawMessage `json:"data"`
}

type apiTest struct {
	t      *testing.T
	router *gin.Engine
	jwt    *jwt.JWTService
	clock  *clock.Fake
	tokens map[string]string
}

func newAPITest(t *testing.T, checks map[string]func(context.Context) error) *apiTest {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.New()
	stores := &service.Stores{
		Users:    st.Users(),
		Circles:  st.Circles(),
		Requests: st.FriendRequests(),
		Presence: st.Presence(),
		Threads:  st.Threads(),
		Messages: st.Messages(),
		Blocks:   st.Blocks(),
		Reports:  st.Reports(),
	}
	clk := clock.NewFake(time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC))
	jwtSvc := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", Issuer: "imin-identity", ExpireTime: time.Hour})

	router := NewRouter(RouterOptions{
		JWT: jwtSvc,
		Services: Services{
			Users: service.NewUserService(stores, nil, clk),
			Presence: service.NewPresenceService(stores, nil, clk, service.PresenceOptions{
				DefaultAutoReset: model.AutoReset1Hour,
				TonightHour:      21,
				Location:         time.UTC,
			}),
			Circles: service.NewCircleService(stores, clk),
			Friends: service.NewFriendService(stores, clk),
			Chat:    service.NewChatService(stores, nil, clk),
			Safety:  service.NewSafetyService(stores, clk),
		},
		DefaultAutoReset: model.AutoReset1Hour,
		HealthChecks:     checks,
	})
	return &apiTest{t: t, router: router, jwt: jwtSvc, clock: clk, tokens: map[string]string{}}
}

// as 以 userID 身份发起请求；userID 为空表示不带令牌
func (a *apiTest) as(userID, method, path string, body interface{}) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, ok := a.tokens[userID]
		if !ok {
			var err error
			token, err = a.jwt.GenerateToken(userID, "User "+userID, userID+"@example.com")
			require.NoError(a.t, err)
			a.tokens[userID] = token
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestAuthRequired(t *testing.T) {
	api := newAPITest(t, nil)
	status, _ := api.as("", http.MethodGet, "/api/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProfileProvisionedFromToken(t *testing.T) {
	api := newAPITest(t, nil)

	status, env := api.as("alice", http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusOK, status)
	profile := decode[map[string]interface{}](t, env)
	assert.Equal(t, "alice", profile["id"])
	assert.Equal(t, "User alice", profile["name"])
	assert.Equal(t, "1h", profile["auto_reset"])

	status, env = api.as("alice", http.MethodPut, "/api/v1/me", map[string]string{"handle": "@Alice_A"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice_a", decode[map[string]interface{}](t, env)["handle"])

	api.as("bob", http.MethodGet, "/api/v1/me", nil)
	status, env = api.as("bob", http.MethodPut, "/api/v1/me", map[string]string{"handle": "alice_a"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Reason)

	status, env = api.as("alice", http.MethodPut, "/api/v1/me/settings", map[string]string{"auto_reset": "forever"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", env.Reason)
}

func TestCircleScopedPresence(t *testing.T) {
	api := newAPITest(t, nil)
	for _, id := range []string{"owner", "viewer", "outsider"} {
		status, _ := api.as(id, http.MethodGet, "/api/v1/me", nil)
		require.Equal(t, http.StatusOK, status)
	}

	status, env := api.as("owner", http.MethodPost, "/api/v1/circles", map[string]string{"name": "Roommates"})
	require.Equal(t, http.StatusCreated, status)
	circleID := decode[map[string]interface{}](t, env)["id"].(string)

	status, _ = api.as("owner", http.MethodPost, "/api/v1/circles/"+circleID+"/members", map[string]string{"user_id": "viewer"})
	require.Equal(t, http.StatusOK, status)

	status, _ = api.as("outsider", http.MethodPut, "/api/v1/circles/"+circleID, map[string]string{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.as("owner", http.MethodPut, "/api/v1/presence", map[string]interface{}{
		"state":                 "in",
		"visibility_mode":       "circles",
		"visibility_circle_ids": []string{circleID},
		"reset_duration":        "30m",
	})
	require.Equal(t, http.StatusOK, status)

	visibleTo := func(viewer string) []string {
		status, env := api.as(viewer, http.MethodGet, "/api/v1/presence/visible", nil)
		require.Equal(t, http.StatusOK, status)
		var ids []string
		for _, p := range decode[[]visibleEntry](t, env) {
			ids = append(ids, p.UserID)
		}
		return ids
	}
	assert.Equal(t, []string{"owner"}, visibleTo("viewer"))
	assert.Empty(t, visibleTo("outsider"))

	status, env = api.as("outsider", http.MethodGet, "/api/v1/presence/owner", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "out", decode[map[string]interface{}](t, env)["state"])

	api.clock.Advance(31 * time.Minute)
	assert.Empty(t, visibleTo("viewer"))

	status, env = api.as("owner", http.MethodGet, "/api/v1/presence/owner", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "out", decode[map[string]interface{}](t, env)["state"])
}

type visibleEntry struct {
	UserID string `json:"user_id"`
	State  string `json:"state"`
}

func TestFriendRequestFlow(t *testing.T) {
	api := newAPITest(t, nil)
	api.as("alice", http.MethodGet, "/api/v1/me", nil)
	api.as("bob", http.MethodPut, "/api/v1/me", map[string]string{"handle": "bobby"})

	status, env := api.as("alice", http.MethodPost, "/api/v1/friends/requests", map[string]string{"recipient": "@bobby"})
	require.Equal(t, http.StatusCreated, status)
	first := decode[map[string]interface{}](t, env)

	status, env = api.as("alice", http.MethodPost, "/api/v1/friends/requests", map[string]string{"recipient": "bobby"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, first["id"], decode[map[string]interface{}](t, env)["id"])

	status, _ = api.as("alice", http.MethodPost, "/api/v1/friends/requests", map[string]string{"recipient": "alice@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = api.as("alice", http.MethodPost, "/api/v1/friends/requests", map[string]string{"recipient": "nobody"})
	assert.Equal(t, http.StatusNotFound, status)

	status, env = api.as("bob", http.MethodGet, "/api/v1/friends/requests?direction=incoming", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]interface{}](t, env), 1)

	id := first["id"].(string)
	status, _ = api.as("alice", http.MethodPost, "/api/v1/friends/requests/"+id+"/respond", map[string]string{"action": "accept"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.as("bob", http.MethodPost, "/api/v1/friends/requests/"+id+"/respond", map[string]string{"action": "maybe"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = api.as("bob", http.MethodPost, "/api/v1/friends/requests/"+id+"/respond", map[string]string{"action": "accept"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "accepted", decode[map[string]interface{}](t, env)["status"])

	status, _ = api.as("bob", http.MethodPost, "/api/v1/friends/requests/"+id+"/respond", map[string]string{"action": "decline"})
	assert.Equal(t, http.StatusConflict, status)

	status, env = api.as("alice", http.MethodGet, "/api/v1/friends", nil)
	require.Equal(t, http.StatusOK, status)
	friends := decode[[]map[string]interface{}](t, env)
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0]["id"])
}

func TestChatAndBlocking(t *testing.T) {
	api := newAPITest(t, nil)
	for _, id := range []string{"alice", "bob", "carol"} {
		api.as(id, http.MethodGet, "/api/v1/me", nil)
	}

	status, env := api.as("alice", http.MethodPost, "/api/v1/threads", map[string]string{"user_id": "bob"})
	require.Equal(t, http.StatusOK, status)
	threadID := decode[map[string]interface{}](t, env)["id"].(string)

	status, env = api.as("bob", http.MethodPost, "/api/v1/threads", map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, threadID, decode[map[string]interface{}](t, env)["id"])

	msgPath := "/api/v1/threads/" + threadID + "/messages"
	status, env = api.as("alice", http.MethodPost, msgPath, map[string]string{"body": "  hi  "})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "hi", decode[map[string]interface{}](t, env)["body"])

	status, env = api.as("alice", http.MethodPost, msgPath, map[string]string{"body": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", env.Reason)

	status, _ = api.as("carol", http.MethodPost, msgPath, map[string]string{"body": "hey"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = api.as("bob", http.MethodGet, msgPath, nil)
	require.Equal(t, http.StatusOK, status)
	msgs := decode[[]map[string]interface{}](t, env)
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice", msgs[0]["sender_id"])

	status, _ = api.as("bob", http.MethodPost, "/api/v1/blocks", map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusOK, status)
	status, _ = api.as("bob", http.MethodPost, "/api/v1/blocks", map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusOK, status)

	status, env = api.as("alice", http.MethodPost, msgPath, map[string]string{"body": "still there?"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "BLOCKED", env.Reason)

	status, env = api.as("bob", http.MethodGet, "/api/v1/blocks", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]map[string]interface{}](t, env), 1)

	status, _ = api.as("bob", http.MethodDelete, "/api/v1/blocks/alice", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.as("alice", http.MethodPost, msgPath, map[string]string{"body": "ok now"})
	assert.Equal(t, http.StatusCreated, status)

	status, _ = api.as("bob", http.MethodDelete, "/api/v1/threads/"+threadID, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = api.as("bob", http.MethodGet, "/api/v1/threads", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]map[string]interface{}](t, env))
}

func TestReportValidation(t *testing.T) {
	api := newAPITest(t, nil)

	status, env := api.as("alice", http.MethodPost, "/api/v1/reports", map[string]string{"thread_id": "t1", "reason": "rude"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", env.Reason)

	status, env = api.as("alice", http.MethodPost, "/api/v1/reports", map[string]string{"thread_id": "t1", "reason": "spam"})
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, decode[map[string]interface{}](t, env)["id"])
}

func TestHealth(t *testing.T) {
	api := newAPITest(t, map[string]func(context.Context) error{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	status, env := api.as("", http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, status)
	body := decode[map[string]interface{}](t, env)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "ok", body["components"].(map[string]interface{})["database"])
}
