package value

import (
	"sync"

	"github.com/funvibe/rcore/internal/ast"
)

// Symbol is an interned name: Intern returns the same pointer for equal names.
type Symbol struct {
	Name string
}

func (s *Symbol) Kind() Kind { return KindSymbol }

var symbols sync.Map // string -> *Symbol

func Intern(name string) *Symbol {
	if s, ok := symbols.Load(name); ok {
		return s.(*Symbol)
	}
	s, _ := symbols.LoadOrStore(name, &Symbol{Name: name})
	return s.(*Symbol)
}

// Language is a quoted call or other unevaluated AST fragment.
type Language struct {
	Node ast.Expression
}

func (l *Language) Kind() Kind { return KindLanguage }

// Pairlist is a cons cell chain, used for FFI interchange and argument lists.
type Pairlist struct {
	Tag string
	Car Value
	Cdr *Pairlist
}

func (p *Pairlist) Kind() Kind { return KindPairlist }

func (p *Pairlist) Len() int {
	n := 0
	for c := p; c != nil; c = c.Cdr {
		n++
	}
	return n
}

// PairlistFromList converts a (possibly named) list to a pairlist. An empty list gives
// nil.
func PairlistFromList(l *List) *Pairlist {
	var head, tail *Pairlist
	names := Names(l)
	for i, e := range l.data {
		cell := &Pairlist{Car: e}
		if names != nil && !names.IsNA(i) {
			cell.Tag = names.At(i)
		}
		if head == nil {
			head = cell
		} else {
			tail.Cdr = cell
		}
		tail = cell
	}
	return head
}

// ToList converts the chain back to a list, keeping tags as names.
func (p *Pairlist) ToList() *List {
	var elems []Value
	var names []string
	named := false
	for c := p; c != nil; c = c.Cdr {
		elems = append(elems, c.Car)
		names = append(names, c.Tag)
		if c.Tag != "" {
			named = true
		}
	}
	l := NewList(elems)
	if named {
		_ = SetAttr(l, AttrNames, NewStrings(names...))
	}
	return l
}
