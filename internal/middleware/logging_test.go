// internal/middleware/logging_test.go
package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, withReqID bool) *test.Hook {
	t.Helper()
	logger, hook := test.NewNullLogger()
	var h http.Handler = LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("hi"))
	}))
	if withReqID {
		h = chimw.RequestID(h)
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rooms", nil))
	return hook
}

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	hook := serve(t, http.StatusOK, true)

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "/rooms", entry.Data["path"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.Equal(t, 2, entry.Data["bytes"])
	assert.NotEmpty(t, entry.Data["request_id"])
}

func TestLogMiddlewareLevelFollowsStatus(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, serve(t, http.StatusNotFound, false).LastEntry().Level)
	assert.Equal(t, logrus.ErrorLevel, serve(t, http.StatusBadGateway, false).LastEntry().Level)

	_, ok := serve(t, http.StatusOK, false).LastEntry().Data["request_id"]
	assert.False(t, ok)
}

func TestLogSocketClosed(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)

	LogSocketClosed(logger, r, "c1", errors.New("boom"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.EqualError(t, hook.LastEntry().Data[logrus.ErrorKey].(error), "boom")
	assert.Equal(t, "c1", hook.LastEntry().Data["conn"])

	LogSocketClosed(logger, r, "c1", nil)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	_, ok := hook.LastEntry().Data[logrus.ErrorKey]
	assert.False(t, ok)
}
