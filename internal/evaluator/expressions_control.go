package evaluator

import (
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

func (e *Evaluator) evalIf(node *ast.IfExpression, env *value.Environment) (value.Value, error) {
	cond, err := e.Eval(node.Condition, env)
	if err != nil {
		return nil, err
	}
	ok, err := coerce.AsLogicalScalar(cond)
	if err != nil {
		return nil, callError(err, node)
	}
	if ok {
		return e.Eval(node.Consequence, env)
	}
	if node.Alternative != nil {
		return e.Eval(node.Alternative, env)
	}
	e.visible = false
	return value.Null, nil
}

// loopBody runs one iteration and reports whether the loop should stop.
func (e *Evaluator) loopBody(body ast.Expression, env *value.Environment) (stop bool, err error) {
	_, err = e.Eval(body, env)
	switch err.(type) {
	case nil:
		return false, nil
	case BreakSignal:
		return true, nil
	case NextSignal:
		return false, nil
	}
	return true, err
}

func (e *Evaluator) evalFor(node *ast.ForExpression, env *value.Environment) (value.Value, error) {
	seq, err := e.Eval(node.Sequence, env)
	if err != nil {
		return nil, err
	}
	items, err := loopItems(seq)
	if err != nil {
		return nil, callError(err, node)
	}
	for i := 0; i < items.n; i++ {
		if err := env.Bind(node.Variable.Value, items.at(i)); err != nil {
			return nil, err
		}
		stop, err := e.loopBody(node.Body, env)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
	}
	e.visible = false
	return value.Null, nil
}

type loopSeq struct {
	n  int
	at func(i int) value.Value
}

// loopItems splits the sequence of a for loop into its elements. Factors iterate
// over their labels.
func loopItems(seq value.Value) (loopSeq, error) {
	if value.IsNull(seq) {
		return loopSeq{}, nil
	}
	if value.IsFactor(seq) {
		labels, err := factorLabels(seq.(*value.IntegerVector))
		if err != nil {
			return loopSeq{}, err
		}
		return loopSeq{n: labels.Len(), at: func(i int) value.Value { return labels.Elem(i) }}, nil
	}
	switch s := seq.(type) {
	case *value.List:
		return loopSeq{n: s.Len(), at: s.At}, nil
	case *value.ExpressionVector:
		return loopSeq{n: s.Len(), at: s.At}, nil
	case value.Vector:
		return loopSeq{n: s.Len(), at: func(i int) value.Value { return s.Elem(i) }}, nil
	case *value.Pairlist:
		l := s.ToList()
		return loopSeq{n: l.Len(), at: l.At}, nil
	}
	return loopSeq{}, diagnostics.Errorf(diagnostics.ErrR007, "invalid for() loop sequence")
}

func (e *Evaluator) evalWhile(node *ast.WhileExpression, env *value.Environment) (value.Value, error) {
	for {
		cond, err := e.Eval(node.Condition, env)
		if err != nil {
			return nil, err
		}
		ok, err := coerce.AsLogicalScalar(cond)
		if err != nil {
			return nil, callError(err, node)
		}
		if !ok {
			break
		}
		stop, err := e.loopBody(node.Body, env)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
	}
	e.visible = false
	return value.Null, nil
}

func (e *Evaluator) evalRepeat(node *ast.RepeatExpression, env *value.Environment) (value.Value, error) {
	for {
		stop, err := e.loopBody(node.Body, env)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
	}
	e.visible = false
	return value.Null, nil
}
