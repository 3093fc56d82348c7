package authcore

import "context"

type requestMetaKey struct{}

// requestMeta is the caller information audit events are stamped with.
type requestMeta struct {
	ip        string
	userAgent string
}

func metaFromContext(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	m, _ := ctx.Value(requestMetaKey{}).(requestMeta)
	return m
}

// WithClientIP attaches the caller's IP address to ctx. Login takes the IP
// explicitly; the context copy only feeds audit events of the other operations.
func WithClientIP(ctx context.Context, ip string) context.Context {
	m := metaFromContext(ctx)
	m.ip = ip
	return context.WithValue(ctx, requestMetaKey{}, m)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx for audit metadata.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	m := metaFromContext(ctx)
	m.userAgent = userAgent
	return context.WithValue(ctx, requestMetaKey{}, m)
}

func clientIPFromContext(ctx context.Context) string  { return metaFromContext(ctx).ip }
func userAgentFromContext(ctx context.Context) string { return metaFromContext(ctx).userAgent }
