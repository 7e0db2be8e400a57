// Package observability provides structured logging for the chat proxy.
//
// This package implements:
//   - zap logger construction from configuration (level, json/console)
//   - request-scoped loggers carried through context.Context
//
// Every fallback attempt is logged with the model tried, its outcome and
// the upstream status so failures can be diagnosed without replaying them.
package observability
