package httpmetrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	keyPath   = tag.MustNewKey("path")
	keyStatus = tag.MustNewKey("status")
)

type Wrapper struct {
	requestCount     *stats.Int64Measure
	requestCountView *view.View

	requestLatency     *stats.Float64Measure
	requestLatencyView *view.View

	inner http.Handler
}

func New(inner http.Handler) *Wrapper {
	r := &Wrapper{}

	r.requestCount = stats.Int64("requests", "", stats.UnitDimensionless)
	r.requestCountView = &view.View{
		Name:        "requests",
		Description: "Counter of requests that have been handled",

		TagKeys: []tag.Key{keyPath, keyStatus},

		Measure:     r.requestCount,
		Aggregation: view.Count(),
	}

	r.requestLatency = stats.Float64("request_latency", "", stats.UnitMilliseconds)
	r.requestLatencyView = &view.View{
		Name:        "request_latency",
		Description: "Latency of handled requests",

		TagKeys: []tag.Key{keyPath, keyStatus},

		Measure:     r.requestLatency,
		Aggregation: view.Distribution(1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	}

	r.inner = inner

	return r
}

func (h *Wrapper) RegisterMetrics() {
	view.Register(h.requestCountView, h.requestLatencyView)
}

// statusRecorder remembers the status code written by the inner handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Wrapper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	begin := time.Now()

	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.inner.ServeHTTP(recorder, r)

	elapsed := time.Since(begin)

	glog.Infof("Served path=%q status=%d elapsed=%v", r.URL.Path, recorder.status, elapsed)

	stats.RecordWithOptions(
		r.Context(),
		stats.WithTags(
			tag.Insert(keyPath, r.URL.Path),
			tag.Insert(keyStatus, strconv.Itoa(recorder.status)),
		),
		stats.WithMeasurements(
			h.requestCount.M(1),
			h.requestLatency.M(float64(elapsed)/float64(time.Millisecond)),
		))
}
