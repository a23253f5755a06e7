// Package ir models OLLIR, the typed three-address form sitting between the
// checked tree and the Jasmin backend.
package ir

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindBool
	KindIntArray
	KindStringArray
	KindClass
)

type Type struct {
	Kind  Kind
	Class string
}

var (
	Void        = Type{Kind: KindVoid}
	Int         = Type{Kind: KindInt}
	Bool        = Type{Kind: KindBool}
	IntArray    = Type{Kind: KindIntArray}
	StringArray = Type{Kind: KindStringArray}
)

func ClassType(name string) Type { return Type{Kind: KindClass, Class: name} }

// String is the suffix written after a dot, as in x.i32 or ret.V.
func (t Type) String() string {
	switch t.Kind {
	case KindVoid:
		return "V"
	case KindInt:
		return "i32"
	case KindBool:
		return "bool"
	case KindIntArray:
		return "array.i32"
	case KindStringArray:
		return "array.String"
	}
	return t.Class
}

// IsReference reports whether values of t live in reference slots.
func (t Type) IsReference() bool {
	return t.Kind == KindIntArray || t.Kind == KindStringArray || t.Kind == KindClass
}

type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpLt
	OpGt
	OpLte
	OpGte
	OpEq
	OpNeq
	OpAnd
	OpOr
	OpNot
)

var opStrings = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/",
	OpLt: "<", OpGt: ">", OpLte: "<=", OpGte: ">=", OpEq: "==", OpNeq: "!=",
	OpAnd: "&&", OpOr: "||", OpNot: "!",
}

func (o Op) String() string { return opStrings[o] }

// IsComparison reports whether o compares two ints.
func (o Op) IsComparison() bool { return o >= OpLt && o <= OpNeq }

type Value interface {
	isValue()
	Type() Type
	String() string
}

// Literal is an int or boolean constant; booleans hold 0 or 1.
type Literal struct {
	Value int32
	Typ   Type
}

// Operand is a named local, temporary or parameter. Param is the 1-based $N
// prefix, zero for everything else.
type Operand struct {
	Name  string
	Typ   Type
	Param int
}

// ArrayElem is a[i.i32].i32; Index is never a literal.
type ArrayElem struct {
	Array *Operand
	Index Value
}

type This struct{ Class string }

// ClassRef names a class in call targets and new(), as in invokestatic(io, ...).
type ClassRef struct{ Name string }

func (*Literal) isValue()   {}
func (*Operand) isValue()   {}
func (*ArrayElem) isValue() {}
func (*This) isValue()      {}
func (*ClassRef) isValue()  {}

func (l *Literal) Type() Type   { return l.Typ }
func (o *Operand) Type() Type   { return o.Typ }
func (a *ArrayElem) Type() Type { return Int }
func (t *This) Type() Type      { return ClassType(t.Class) }
func (c *ClassRef) Type() Type  { return ClassType(c.Name) }

func (l *Literal) String() string { return strconv.Itoa(int(l.Value)) + "." + l.Typ.String() }

func (o *Operand) String() string { return o.ref() + "." + o.Typ.String() }

func (o *Operand) ref() string {
	if o.Param > 0 {
		return "$" + strconv.Itoa(o.Param) + "." + o.Name
	}
	return o.Name
}

func (a *ArrayElem) String() string { return a.Array.ref() + "[" + a.Index.String() + "].i32" }
func (t *This) String() string      { return "this" }
func (c *ClassRef) String() string  { return c.Name }

func IntLit(v int32) *Literal { return &Literal{Value: v, Typ: Int} }

func BoolLit(b bool) *Literal {
	if b {
		return &Literal{Value: 1, Typ: Bool}
	}
	return &Literal{Value: 0, Typ: Bool}
}

type Instr interface {
	isInstr()
	String() string
}

type CallKind int

const (
	InvokeVirtual CallKind = iota
	InvokeSpecial
	InvokeStatic
	New
	ArrayLength
	Ldc
)

var callNames = [...]string{
	InvokeVirtual: "invokevirtual", InvokeSpecial: "invokespecial", InvokeStatic: "invokestatic",
	New: "new", ArrayLength: "arraylength", Ldc: "ldc",
}

func (k CallKind) String() string { return callNames[k] }

// Assign stores Rhs into Dest, an Operand or ArrayElem.
type Assign struct {
	Dest Value
	Typ  Type
	Rhs  Instr
}

type Goto struct{ Label string }

// Branch jumps when Cond, a BinaryOp, UnaryOp or NoOp, holds.
type Branch struct {
	Cond  Instr
	Label string
}

// Return carries a nil Val for void methods.
type Return struct {
	Typ Type
	Val Value
}

type GetField struct {
	Object Value
	Field  *Operand
}

type PutField struct {
	Object Value
	Field  *Operand
	Val    Value
}

// Call covers the invoke family plus the new, arraylength and ldc pseudo calls.
// Method is empty for the pseudo calls.
type Call struct {
	Kind   CallKind
	Target Value
	Method string
	Args   []Value
	Ret    Type
}

type UnaryOp struct {
	Op      Op
	Operand Value
}

type BinaryOp struct {
	Op          Op
	Left, Right Value
	Typ         Type
}

// NoOp is a bare operand used as a right-hand side or condition.
type NoOp struct{ Val Value }

func (*Assign) isInstr()   {}
func (*Goto) isInstr()     {}
func (*Branch) isInstr()   {}
func (*Return) isInstr()   {}
func (*GetField) isInstr() {}
func (*PutField) isInstr() {}
func (*Call) isInstr()     {}
func (*UnaryOp) isInstr()  {}
func (*BinaryOp) isInstr() {}
func (*NoOp) isInstr()     {}

func (a *Assign) String() string {
	return a.Dest.String() + " :=." + a.Typ.String() + " " + a.Rhs.String()
}

func (g *Goto) String() string   { return "goto " + g.Label }
func (b *Branch) String() string { return "if (" + b.Cond.String() + ") goto " + b.Label }

func (r *Return) String() string {
	if r.Val == nil {
		return "ret." + r.Typ.String()
	}
	return "ret." + r.Typ.String() + " " + r.Val.String()
}

func (g *GetField) String() string {
	return fmt.Sprintf("getfield(%s, %s).%s", g.Object, g.Field, g.Field.Typ)
}

func (p *PutField) String() string {
	return fmt.Sprintf("putfield(%s, %s, %s).V", p.Object, p.Field, p.Val)
}

func (c *Call) String() string {
	parts := []string{c.Target.String()}
	if c.Method != "" {
		parts = append(parts, strconv.Quote(c.Method))
	}
	for _, a := range c.Args {
		parts = append(parts, a.String())
	}
	return c.Kind.String() + "(" + strings.Join(parts, ", ") + ")." + c.Ret.String()
}

func (u *UnaryOp) String() string { return u.Op.String() + ".bool " + u.Operand.String() }

func (b *BinaryOp) String() string {
	return b.Left.String() + " " + b.Op.String() + "." + b.Typ.String() + " " + b.Right.String()
}

func (n *NoOp) String() string { return n.Val.String() }

// ResultType is the type an instruction leaves behind when used as a value.
func ResultType(in Instr) Type {
	switch in := in.(type) {
	case *Call:
		return in.Ret
	case *GetField:
		return in.Field.Typ
	case *UnaryOp:
		return Bool
	case *BinaryOp:
		return in.Typ
	case *NoOp:
		return in.Val.Type()
	}
	return Void
}

type Field struct {
	Name string
	Typ  Type
}

// Label marks the instruction index it precedes; Index may equal len(Instrs).
type Label struct {
	Name  string
	Index int
}

type Method struct {
	Name          string
	IsStatic      bool
	IsConstructor bool
	Params        []*Operand
	Ret           Type
	Instrs        []Instr
	Labels        []Label
}

func (m *Method) Emit(in Instr) { m.Instrs = append(m.Instrs, in) }

// Mark places a label before the next emitted instruction.
func (m *Method) Mark(label string) {
	m.Labels = append(m.Labels, Label{Name: label, Index: len(m.Instrs)})
}

// LabelsAt returns the labels preceding instruction i, in the order they were marked.
func (m *Method) LabelsAt(i int) []string {
	var out []string
	for _, l := range m.Labels {
		if l.Index == i {
			out = append(out, l.Name)
		}
	}
	return out
}

type Class struct {
	Name    string
	Super   string
	Imports []string
	Fields  []*Field
	Methods []*Method
}

// Method finds a method by name; the constructor is never returned.
func (c *Class) Method(name string) (*Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name && !m.IsConstructor {
			return m, true
		}
	}
	return nil, false
}
