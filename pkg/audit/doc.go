// Package audit records committed permission and user mutations as
// append-only, human-readable lines.
//
// # Line format
//
//	[2025-06-18 12:00:01] PERMISSION CHANGE: role=trader key=trader.view_portfolio value=true operator=alice
//	[2025-06-18 12:00:02] USER ADD: user=bob role=trader client_id=null active=true operator=alice
//	[2025-06-18 12:00:03] USER STATUS TOGGLE: user=bob active=false operator=alice
//
// Values containing spaces, quotes or '=' are Go-quoted so ParseLine can read
// them back.
//
// # Sinks
//
// FileLogger writes one line per Append using O_APPEND and can rotate by size.
// MemoryLogger keeps records for tests, MultiLogger fans out, and NoOp
// discards. Stores treat append failures as non-fatal.
package audit
