// Package probe implements the binary event contract shared with the
// out-of-process tracer attached to the evaluator's probe points.
//
// The kernel side fills a fixed C struct per probe hit:
//
//	struct trace_event {
//	  u64  ts;              // bpf_ktime_get_ns
//	  u64  expr_id;
//	  u32  line;
//	  u32  column;
//	  char probe_name[25];
//	  char file[128];
//	};                      // sizeof == 184, 7 trailing pad bytes
//
// Field order and widths are the compatibility contract. Changing them is a
// breaking change: append fields and bump StreamVersion instead.
//
// Two schemas exist. SchemaCombined uses the full struct for both entry and
// exit hits, exits carrying only ts, expr_id and the probe name. SchemaSplit
// keeps the full struct for entries and sends a 16-byte {ts, expr_id} record
// on exit. Either way entry and exit are matched by expr_id.
//
// Strings that do not fit their field are truncated without error.
package probe
