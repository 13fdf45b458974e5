package core

import "context"

type contextKey string

const (
	ctxKeyClientIP  contextKey = "import_client_ip"
	ctxKeyImportSrc contextKey = "import_source"
)

// ContextWithClientIP records the address that started an import or avatar
// change, for log correlation.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// ContextWithSource records where a batch came from ("web", "api", "cli").
func ContextWithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, ctxKeyImportSrc, source)
}

// ClientIPFromContext returns the address stored by ContextWithClientIP.
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClientIP).(string); ok {
		return v
	}
	return ""
}

// SourceFromContext returns the batch source, or "unknown".
func SourceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyImportSrc).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
