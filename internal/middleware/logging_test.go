package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestLoggingRecordsStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := Logging(logrus.NewEntry(logger))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, http.StatusTeapot, entry.Data["status"])
	require.Equal(t, "/health", entry.Data["path"])
	require.Equal(t, logrus.InfoLevel, entry.Level)
}

func TestLoggingWarnsOnServerErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := Logging(logrus.NewEntry(logger))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
