package ctxutil

import "context"

type requestKey struct{}

// RequestInfo identifies one HTTP request across logs and spans.
type RequestInfo struct {
	RequestID string
	TraceID   string
}

func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(Default(ctx), requestKey{}, info)
}

// RequestInfoFrom returns the zero value outside a request.
func RequestInfoFrom(ctx context.Context) RequestInfo {
	if ctx == nil {
		return RequestInfo{}
	}
	info, _ := ctx.Value(requestKey{}).(RequestInfo)
	return info
}

// LogFields renders info as logger key/value pairs, omitting blanks.
func (info RequestInfo) LogFields() []interface{} {
	var kv []interface{}
	if info.RequestID != "" {
		kv = append(kv, "request_id", info.RequestID)
	}
	if info.TraceID != "" {
		kv = append(kv, "trace_id", info.TraceID)
	}
	return kv
}

// Default never returns a nil context.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
