package obs

import (
	"context"
	"sort"
	"sync"
)

type (
	routePatternKey struct{}
	logFieldsKey    struct{}
)

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}

// logFields is shared between the request logger and the handlers below it,
// so values discovered deep in the chain end up on the access log line.
type logFields struct {
	mu     sync.Mutex
	fields map[string]string
}

func withLogFields(ctx context.Context) (context.Context, *logFields) {
	lf := &logFields{fields: map[string]string{}}
	return context.WithValue(ctx, logFieldsKey{}, lf), lf
}

// AddLogField attaches key=value to the access log entry of the current
// request. It is a no-op outside RequestLogger.
func AddLogField(ctx context.Context, key, value string) {
	if ctx == nil || value == "" {
		return
	}
	lf, ok := ctx.Value(logFieldsKey{}).(*logFields)
	if !ok {
		return
	}
	lf.mu.Lock()
	lf.fields[key] = value
	lf.mu.Unlock()
}

func (lf *logFields) each(fn func(key, value string)) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	keys := make([]string, 0, len(lf.fields))
	for k := range lf.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fn(k, lf.fields[k])
	}
}
