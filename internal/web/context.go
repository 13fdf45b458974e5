package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/userimport/internal/core"
	mw "github.com/JonMunkholm/userimport/internal/web/middleware"
)

// SourceWeb tags operations started over HTTP.
const SourceWeb = "web"

// requestContext carries the client IP and source into core operations.
func requestContext(r *http.Request) context.Context {
	ctx := core.ContextWithClientIP(r.Context(), mw.ClientIP(r))
	return core.ContextWithSource(ctx, SourceWeb)
}
