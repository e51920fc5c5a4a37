package errors

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertCooldownPerKind(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h := newErrorHandler(srv.URL, nil)
	h.Alert("ledger_fail_open", "mongo caído")
	h.Alert("ledger_fail_open", "mongo caído otra vez")
	h.Alert("sweep_failed", "barrido fallido")

	require.Eventually(t, func() bool { return hits.Load() == 2 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, h.errorCount.Load(), "alerts must not count toward the crash threshold")
}

func TestCrashRunsShutdownAndExits(t *testing.T) {
	var shutdown bool
	var code int
	h := newErrorHandler("", func() { shutdown = true })
	h.exit = func(c int) { code = c }

	for i := 0; i < 16; i++ {
		h.IncrementError()
	}
	require.True(t, h.overThreshold())
	h.crash()

	assert.True(t, shutdown)
	assert.Equal(t, 1, code)
}

func TestRecoverMiddlewareCountsPanics(t *testing.T) {
	prev := handler
	handler = newErrorHandler("", nil)
	defer func() { handler = prev }()

	func() {
		defer RecoverMiddleware()()
		panic("boom")
	}()

	assert.Equal(t, int32(1), handler.errorCount.Load())
}

func TestStopIsIdempotent(t *testing.T) {
	h := NewErrorHandler("", nil)
	h.Stop()
	h.Stop()
}
