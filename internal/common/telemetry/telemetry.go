// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/Trawl_phase1/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	sourceSearchTotal     *expvar.Map
	sourceSearchLatencyMS *expvar.Map

	completionTotal     *expvar.Int
	completionFailures  *expvar.Int
	completionLatencyMS *expvar.Int

	documentsBuilt    *expvar.Int
	documentsAppended *expvar.Int
	itemsPersisted    *expvar.Int

	taskTotal *expvar.Map
)

func ensureInit() {
	initOnce.Do(func() {
		sourceSearchTotal = expvar.NewMap("trawl_source_search_total")
		sourceSearchLatencyMS = expvar.NewMap("trawl_source_search_latency_ms")

		completionTotal = expvar.NewInt("trawl_completion_total")
		completionFailures = expvar.NewInt("trawl_completion_failures")
		completionLatencyMS = expvar.NewInt("trawl_completion_latency_ms")

		documentsBuilt = expvar.NewInt("trawl_documents_built_total")
		documentsAppended = expvar.NewInt("trawl_documents_appended_total")
		itemsPersisted = expvar.NewInt("trawl_items_persisted_total")

		taskTotal = expvar.NewMap("trawl_task_total")
	})
}

// StartSpan records a named trace span on the context and returns a
// closer that logs the duration with any extra attributes.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		if sp == nil {
			return
		}
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordSourceSearch counts one query against a capability source.
func RecordSourceSearch(sourceName string, duration time.Duration) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(sourceName))
	if key == "" {
		key = "unknown"
	}
	sourceSearchTotal.Add(key, 1)
	if duration > 0 {
		sourceSearchLatencyMS.Add(key, duration.Milliseconds())
	}
}

// RecordCompletion counts one call to the completion backend.
func RecordCompletion(duration time.Duration, err error) {
	ensureInit()
	completionTotal.Add(1)
	if err != nil {
		completionFailures.Add(1)
	}
	if duration > 0 {
		completionLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordDocumentWrite counts one context document write and the items it
// persisted. An append is a write into an existing document.
func RecordDocumentWrite(appended bool, items int) {
	ensureInit()
	if appended {
		documentsAppended.Add(1)
	} else {
		documentsBuilt.Add(1)
	}
	if items > 0 {
		itemsPersisted.Add(int64(items))
	}
}

// RecordTask counts one task by its terminal status.
func RecordTask(status string) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(status))
	if key == "" {
		key = "unknown"
	}
	taskTotal.Add(key, 1)
}

// SpanDuration reports the elapsed time of the span on the context.
func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}
