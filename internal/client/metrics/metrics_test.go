package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Applied.Inc()
	m.MutationEnqueued(models.TablePages)
	m.MutationEnqueued(models.TablePages)
	m.SetOnline(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Applied))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Enqueued.WithLabelValues("pages")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Online))

	m.SetOnline(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Online))

	n, err := testutil.GatherAndCount(reg, "gophnotes_sync_mutations_applied_total", "gophnotes_online")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNew_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServe_ExposesMetricsUntilCancelled(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Abandoned.Inc()

	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, reg, logging.NewDiscard()) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, strings.Contains(body, "gophnotes_sync_mutations_abandoned_total 1"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
