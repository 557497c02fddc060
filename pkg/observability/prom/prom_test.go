package prom

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ko3luhbka/dephell/pkg/observability"
)

func TestHooksRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnExpandComplete(ctx, "requests", "2.31.0", time.Millisecond, nil)
	m.OnExpandComplete(ctx, "idna", "", time.Millisecond, errors.New("boom"))
	m.OnConflict(ctx, "idna", "empty")
	m.OnBuildComplete(ctx, 7, 3, time.Second, nil)
	m.OnFlatten(ctx, 7, true, nil)
	m.OnLoad(ctx, "pip", 3, time.Millisecond, nil)
	m.OnDump(ctx, "poetry", 3, time.Millisecond, errors.New("unsupported"))
	m.OnCacheHit(ctx, "pypi:")
	m.OnCacheMiss(ctx, "pypi:")
	m.OnCacheMiss(ctx, "pypi:")
	m.OnCacheSet(ctx, "pypi:", 512)
	m.OnResponse(ctx, "GET", "pypi.org", "/pypi/requests/json", 200, time.Millisecond)
	m.OnError(ctx, "GET", "pypi.org", "/pypi/x/json", errors.New("reset"))

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"expand ok", m.expandTotal.WithLabelValues("ok"), 1},
		{"expand error", m.expandTotal.WithLabelValues("error"), 1},
		{"conflicts", m.conflictTotal, 1},
		{"nodes", m.buildNodes, 7},
		{"flatten", m.flattenTotal.WithLabelValues("true", "ok"), 1},
		{"load", m.convertTotal.WithLabelValues("load", "pip", "ok"), 1},
		{"dump", m.convertTotal.WithLabelValues("dump", "poetry", "error"), 1},
		{"hits", m.cacheTotal.WithLabelValues("pypi:", "hit"), 1},
		{"misses", m.cacheTotal.WithLabelValues("pypi:", "miss"), 2},
		{"bytes", m.cacheBytes.WithLabelValues("pypi:"), 512},
		{"requests", m.httpRequestTotal.WithLabelValues("pypi.org", "200"), 1},
		{"errors", m.httpErrorTotal.WithLabelValues("pypi.org"), 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestInstallAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Install()
	t.Cleanup(observability.Reset)

	observability.Converter().OnLoad(context.Background(), "pip", 1, time.Millisecond, nil)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `dephell_converter_operations_total{format="pip",op="load",outcome="ok"} 1`) {
		t.Errorf("metrics output missing converter counter:\n%s", body)
	}
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("second New on the same registry should panic")
		}
	}()
	New(reg)
}
