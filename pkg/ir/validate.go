package ir

import (
	"fmt"
)

// Validate checks that every jump lands on a declared label, that labels are unique,
// and that a non-void method ends in a return.
func (m *Method) Validate() error {
	seen := make(map[string]bool, len(m.Labels))
	for _, l := range m.Labels {
		if seen[l.Name] {
			return fmt.Errorf("method %s: label %s declared twice", m.Name, l.Name)
		}
		if l.Index < 0 || l.Index > len(m.Instrs) {
			return fmt.Errorf("method %s: label %s out of range", m.Name, l.Name)
		}
		seen[l.Name] = true
	}
	for _, in := range m.Instrs {
		var target string
		switch in := in.(type) {
		case *Goto:
			target = in.Label
		case *Branch:
			target = in.Label
		default:
			continue
		}
		if !seen[target] {
			return fmt.Errorf("method %s: jump to undeclared label %s", m.Name, target)
		}
	}
	if m.Ret.Kind != KindVoid {
		if len(m.Instrs) == 0 {
			return fmt.Errorf("method %s: missing return", m.Name)
		}
		if _, ok := m.Instrs[len(m.Instrs)-1].(*Return); !ok {
			return fmt.Errorf("method %s: does not end in a return", m.Name)
		}
	}
	return nil
}

// Validate checks every method of the class.
func (c *Class) Validate() error {
	for _, m := range c.Methods {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// VarTable assigns JVM local slots: this at 0 for instance methods, then the
// parameters in order, then every other named operand by first appearance.
func (m *Method) VarTable() map[string]int {
	slots := make(map[string]int)
	add := func(name string) {
		if _, ok := slots[name]; !ok {
			slots[name] = len(slots)
		}
	}
	if !m.IsStatic {
		add("this")
	}
	for _, p := range m.Params {
		add(p.Name)
	}

	var visit func(v Value)
	visit = func(v Value) {
		switch v := v.(type) {
		case *Operand:
			add(v.Name)
		case *ArrayElem:
			add(v.Array.Name)
			visit(v.Index)
		}
	}
	var visitInstr func(in Instr)
	visitInstr = func(in Instr) {
		switch in := in.(type) {
		case *Assign:
			visit(in.Dest)
			visitInstr(in.Rhs)
		case *Branch:
			visitInstr(in.Cond)
		case *Return:
			if in.Val != nil {
				visit(in.Val)
			}
		case *GetField:
			visit(in.Object)
		case *PutField:
			visit(in.Object)
			visit(in.Val)
		case *Call:
			visit(in.Target)
			for _, a := range in.Args {
				visit(a)
			}
		case *UnaryOp:
			visit(in.Operand)
		case *BinaryOp:
			visit(in.Left)
			visit(in.Right)
		case *NoOp:
			visit(in.Val)
		}
	}
	for _, in := range m.Instrs {
		visitInstr(in)
	}
	return slots
}
