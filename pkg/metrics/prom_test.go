package metrics

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(TopologyLoads.WithLabelValues("stale"))
	TopologyLoads.WithLabelValues("stale").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(TopologyLoads.WithLabelValues("stale")))

	TopologyNodes.WithLabelValues("KC_SNK").Set(2)
	assert.Equal(t, float64(2), testutil.ToFloat64(TopologyNodes.WithLabelValues("KC_SNK")))
}

func TestStartPrometheusServer(t *testing.T) {
	TopologyLoads.WithLabelValues("applied").Add(0)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	StartPrometheusServer(ctx, &wg, &PromServerOpts{Addr: "127.0.0.1:19187"})

	var resp *http.Response
	var err error
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://127.0.0.1:19187/metrics")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "replica_topology_loads_total")

	cancel()
	wg.Wait()
}
