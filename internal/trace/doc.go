// Package trace records evaluation timelines for instrumented expressions.
//
// The package keeps an append-only arena of fixed-size chunks. Every
// instrumented call site claims one slot, stamps the entry time, and stamps
// the exit time when the enclosing evaluation step finishes, however it
// finishes.
//
// # Usage
//
// The evaluator owns one Buffer. A nil Buffer means tracing is disabled:
//
//	g := trace.Point(buf, positions, expr)
//	defer g.End()
//
// Point only inspects the buffer pointer when tracing is off. It reads no
// clock, builds no record and claims no slot.
//
// # Capacity
//
// A chunk of size C hands out at most C-1 slots: the last slot is never
// used. N slots therefore occupy ceil(N/(C-1)) chunks. The buffer grows
// without bound for its whole lifetime; traces are meant to cover a single
// evaluation and are dumped or discarded with the evaluator.
//
// # Probes
//
// A Buffer can mirror every guard to a ProbeSink, which receives entry and
// exit notifications keyed by the record id. The probe package provides a
// sink writing the binary layout consumed by the out-of-process tracer. Its
// Enter and Exit only queue the hit; a full queue drops it, so a slow
// consumer never stalls the evaluator.
package trace
