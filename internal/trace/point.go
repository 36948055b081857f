package trace

import "evaltrace/internal/source"

// Expr is what an instrumented call site knows about the expression it is
// about to evaluate.
type Expr interface {
	Pos() source.PosIdx
	ExprType() string
}

// Point is the instrumentation hook for one evaluation step. With a nil
// buffer it returns an inactive Guard without touching e or positions.
func Point(b *Buffer, positions source.Resolver, e Expr) Guard {
	if b == nil {
		return Guard{}
	}
	return b.Create(NewRecord(positions.Resolve(e.Pos()), e.ExprType()))
}

// PointTop instruments a top-level evaluation of e.
func PointTop(b *Buffer, positions source.Resolver, e Expr) Guard {
	if b == nil {
		return Guard{}
	}
	return b.Create(NewRecord(positions.Resolve(e.Pos()), TopLevelType))
}

// PointAt instruments a step whose position is already resolved.
func PointAt(b *Buffer, pos source.Pos, exprType string) Guard {
	if b == nil {
		return Guard{}
	}
	return b.Create(NewRecord(pos, exprType))
}
