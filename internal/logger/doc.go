// Package logger wraps a zap sugared logger used by every hexpack component:
//   - a global logger with a plain console encoder writing to stdout,
//   - context helpers (ToContext/FromContext/WithName),
//   - level-aware convenience functions (Infof, WarnKV, etc.).
//
// Components accept a context and pull the logger from it, so tests can
// swap in an observer without touching globals.
package logger
