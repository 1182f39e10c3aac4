package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/podwave/podwave-backend/models"
	"github.com/podwave/podwave-backend/routes"
	"github.com/podwave/podwave-backend/services"
	"github.com/podwave/podwave-backend/utils"
)

type stubScripts struct {
	mu     sync.Mutex
	calls  int
	script string
	err    error
}

func (s *stubScripts) GenerateScript(ctx context.Context, req services.ScriptRequest) (*services.ScriptResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &services.ScriptResult{
		Script:   s.script,
		Metadata: map[string]interface{}{"word_count": 6},
	}, nil
}

func (s *stubScripts) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubTTS struct {
	mu     sync.Mutex
	result *services.TTSResult
	err    error
}

func (s *stubTTS) Synthesize(ctx context.Context, req services.TTSRequest) (*services.TTSResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type testEnv struct {
	router  *gin.Engine
	db      *gorm.DB
	gen     *services.Generator
	scripts *stubScripts
	tts     *stubTTS
	user    models.User
	token   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Podcast{}))

	user := models.User{Email: "host@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	token, err := utils.GenerateToken(user.ID.String(), user.Email, "user")
	require.NoError(t, err)

	scripts := &stubScripts{script: "An AI voice talks about the topic."}
	tts := &stubTTS{result: &services.TTSResult{AudioURL: "a.wav", Duration: 125}}
	gen := services.NewGenerator(db, scripts, tts, nil)

	router := routes.SetupRouter(gin.New(), db, gen)

	return &testEnv{
		router:  router,
		db:      db,
		gen:     gen,
		scripts: scripts,
		tts:     tts,
		user:    user,
		token:   token,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestGeneratePodcastLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/podcasts/generate", gin.H{
		"topic": "The rise of renewable energy",
		"style": "educational",
	}, true)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	created := decodeJSON(t, rr)
	assert.Equal(t, "generating", created["status"])
	assert.Nil(t, created["audioUrl"], "initial response must carry a null audioUrl")
	assert.Equal(t, "The rise of renewable energy", created["topic"])
	assert.NotEmpty(t, created["id"])
	assert.NotEmpty(t, created["thumbnail"])

	env.gen.Wait()

	rr = env.request(t, http.MethodGet, "/api/podcasts/history", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeJSON(t, rr)
	podcasts := list["podcasts"].([]interface{})
	require.Len(t, podcasts, 1)

	p := podcasts[0].(map[string]interface{})
	assert.Equal(t, "completed", p["status"])
	assert.Equal(t, "a.wav", p["audioUrl"])
	assert.Equal(t, "2:05", p["duration"])
	_, hasScript := p["script"]
	assert.False(t, hasScript, "list projection must not expose the script")
}

func TestGeneratePodcastValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name  string
		topic string
	}{
		{"missing", ""},
		{"too short", "hey"},
		{"whitespace only", "    "},
		{"too long", strings.Repeat("a", 501)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.request(t, http.MethodPost, "/api/podcasts/generate", gin.H{"topic": tc.topic}, true)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.NotEmpty(t, decodeJSON(t, rr)["error"])
		})
	}

	var count int64
	env.db.Model(&models.Podcast{}).Count(&count)
	assert.Zero(t, count, "invalid requests must not create records")
}

func TestGeneratePodcastRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/podcasts/generate", gin.H{"topic": "A valid topic"}, false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGenerateWithSuppliedScript(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/podcasts/generate", gin.H{
		"topic":  "A topic with its own script",
		"script": "hello world",
	}, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	env.gen.Wait()

	assert.Equal(t, 0, env.scripts.callCount(), "script generation must be skipped")

	var got models.Podcast
	require.NoError(t, env.db.First(&got).Error)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "hello world", got.Script)
}

func TestGenerateUsesMetadata(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/podcasts/generate", gin.H{
		"topic": "Advances in battery research",
		"metadata": gin.H{
			"title":             "Battery Deep Dive",
			"short_description": "Everything about batteries",
			"genre":             "Science",
		},
	}, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	created := decodeJSON(t, rr)
	assert.Equal(t, "Battery Deep Dive", created["title"])
	assert.Equal(t, "Everything about batteries", created["description"])
	assert.Equal(t, "Science", created["genre"])
	assert.Equal(t, env.user.Email, created["author"])

	env.gen.Wait()
}

func TestHistoryOrderAndCap(t *testing.T) {
	env := newTestEnv(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 55; i++ {
		p := models.Podcast{
			UserID:    env.user.ID,
			Topic:     fmt.Sprintf("topic number %d", i),
			Title:     fmt.Sprintf("episode %d", i),
			Status:    models.StatusCompleted,
			AudioURL:  "a.wav",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, env.db.Create(&p).Error)
	}

	rr := env.request(t, http.MethodGet, "/api/podcasts", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)

	podcasts := decodeJSON(t, rr)["podcasts"].([]interface{})
	assert.Len(t, podcasts, 50, "history is capped at 50")

	first := podcasts[0].(map[string]interface{})
	assert.Equal(t, "episode 54", first["title"], "newest record comes first")
}

func TestGenerateScriptEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodPost, "/api/podcasts/script", gin.H{
		"topic": "The history of radio",
		"style": "conversational",
	}, true)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeJSON(t, rr)
	assert.Equal(t, "An AI voice talks about the topic.", body["script"])
	assert.NotNil(t, body["metadata"])

	var count int64
	env.db.Model(&models.Podcast{}).Count(&count)
	assert.Zero(t, count, "script-only generation must not create a record")
}

func TestGenerateScriptEndpointFailure(t *testing.T) {
	env := newTestEnv(t)
	env.scripts.err = errors.New("upstream down")

	rr := env.request(t, http.MethodPost, "/api/podcasts/script", gin.H{
		"topic": "The history of radio",
	}, true)
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	rr = env.request(t, http.MethodPost, "/api/podcasts/script", gin.H{"topic": "hi"}, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func seedOwnedPodcast(t *testing.T, env *testEnv) models.Podcast {
	t.Helper()
	p := models.Podcast{
		UserID:   env.user.ID,
		Topic:    "an existing episode",
		Title:    "an existing episode",
		Status:   models.StatusCompleted,
		AudioURL: "a.wav",
	}
	require.NoError(t, env.db.Create(&p).Error)
	return p
}

func TestPlayCounter(t *testing.T) {
	env := newTestEnv(t)
	p := seedOwnedPodcast(t, env)

	rr := env.request(t, http.MethodPost, "/api/podcasts/"+p.ID.String()+"/play", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, decodeJSON(t, rr)["plays"])

	var got models.Podcast
	require.NoError(t, env.db.First(&got, "id = ?", p.ID).Error)
	assert.Equal(t, 1, got.Plays)
}

func TestPlayCounterReportsStoredValue(t *testing.T) {
	env := newTestEnv(t)
	p := seedOwnedPodcast(t, env)

	// Plays landed outside this handler must be reflected in the response.
	require.NoError(t, env.db.Model(&models.Podcast{}).
		Where("id = ?", p.ID).
		UpdateColumn("plays", 41).Error)

	rr := env.request(t, http.MethodPost, "/api/podcasts/"+p.ID.String()+"/play", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 42, decodeJSON(t, rr)["plays"])

	var got models.Podcast
	require.NoError(t, env.db.First(&got, "id = ?", p.ID).Error)
	assert.EqualValues(t, got.Plays, decodeJSON(t, rr)["plays"], "response must match the stored counter")
}

func TestRating(t *testing.T) {
	env := newTestEnv(t)
	p := seedOwnedPodcast(t, env)

	rr := env.request(t, http.MethodPost, "/api/podcasts/"+p.ID.String()+"/rate", gin.H{"rating": 4}, true)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.request(t, http.MethodPost, "/api/podcasts/"+p.ID.String()+"/rate", gin.H{"rating": 2}, true)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeJSON(t, rr)
	assert.EqualValues(t, 3, body["rating"])
	assert.EqualValues(t, 2, body["ratingCount"])

	rr = env.request(t, http.MethodPost, "/api/podcasts/"+p.ID.String()+"/rate", gin.H{"rating": 9}, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeletePodcast(t *testing.T) {
	env := newTestEnv(t)
	p := seedOwnedPodcast(t, env)

	rr := env.request(t, http.MethodDelete, "/api/podcasts/"+p.ID.String(), nil, true)
	require.Equal(t, http.StatusOK, rr.Code)

	var count int64
	env.db.Model(&models.Podcast{}).Count(&count)
	assert.Zero(t, count)
}

func TestOwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)

	other := models.User{Email: "other@example.com", Password: "x"}
	require.NoError(t, env.db.Create(&other).Error)
	p := models.Podcast{
		UserID: other.ID,
		Topic:  "someone else's episode",
		Title:  "someone else's episode",
		Status: models.StatusCompleted,
	}
	require.NoError(t, env.db.Create(&p).Error)

	for _, req := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/podcasts/" + p.ID.String()},
		{http.MethodPost, "/api/podcasts/" + p.ID.String() + "/play"},
		{http.MethodDelete, "/api/podcasts/" + p.ID.String()},
	} {
		rr := env.request(t, req.method, req.path, nil, true)
		assert.Equal(t, http.StatusForbidden, rr.Code, "%s %s", req.method, req.path)
	}
}
