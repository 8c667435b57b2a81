// Package logx configures alertrelay's structured logging.
//
// Logger is a small wrapper on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - An optional Telegram sink (min-level + rate limiting) that shares the
//     outbound bot client with alert broadcasts
package logx
