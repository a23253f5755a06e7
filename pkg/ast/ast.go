// Package ast defines the types used to represent the Java-- syntax tree
package ast

import (
	"strings"

	"github.com/xplshn/jmmc/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Declarations
	Program NodeType = iota
	Import
	ClassDecl
	MethodDecl
	Param
	VarDecl

	// Statements
	Block
	If
	While
	ExprStmt
	Assign
	ArrayAssign
	Return

	// Expressions
	IntLit
	BoolLit
	Ident
	This
	BinaryOp
	UnaryOp
	ArrayAccess
	Length
	Call
	NewIntArray
	NewObject
)

var nodeTypeNames = [...]string{
	Program: "Program", Import: "Import", ClassDecl: "ClassDecl", MethodDecl: "MethodDecl",
	Param: "Param", VarDecl: "VarDecl", Block: "Block", If: "If", While: "While",
	ExprStmt: "ExprStmt", Assign: "Assign", ArrayAssign: "ArrayAssign", Return: "Return",
	IntLit: "IntLit", BoolLit: "BoolLit", Ident: "Ident", This: "This", BinaryOp: "BinaryOp",
	UnaryOp: "UnaryOp", ArrayAccess: "ArrayAccess", Length: "Length", Call: "Call",
	NewIntArray: "NewIntArray", NewObject: "NewObject",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "Unknown"
}

// Node represents a node in the syntax tree. Tok carries the 1-based source position.
type Node struct {
	Type   NodeType
	Tok    token.Token
	Parent *Node
	Data   interface{}
}

func (n *Node) Line() int { return n.Tok.Line }
func (n *Node) Col() int  { return n.Tok.Column }

// Type is a declared Java-- type: a name plus the array flag.
type Type struct {
	Name    string
	IsArray bool
}

// Pre-defined types
var (
	TypeInt         = Type{Name: "int"}
	TypeBool        = Type{Name: "boolean"}
	TypeIntArray    = Type{Name: "int", IsArray: true}
	TypeVoid        = Type{Name: "void"}
	TypeStringArray = Type{Name: "String", IsArray: true}
)

func (t Type) String() string {
	if t.IsArray {
		return t.Name + "[]"
	}
	return t.Name
}

// IsPrimitive reports whether t is int, boolean or int[].
func (t Type) IsPrimitive() bool {
	return t == TypeInt || t == TypeBool || t == TypeIntArray
}

// IsClass reports whether t names a class rather than a built-in type.
func (t Type) IsClass() bool {
	if t.IsArray {
		return false
	}
	switch t.Name {
	case "int", "boolean", "void", "String":
		return false
	}
	return true
}

// --- Node Data Structs ---
type ProgramNode struct {
	Imports []*Node
	Class   *Node
}
type ImportNode struct{ Path []string }
type ClassDeclNode struct {
	Name    string
	Super   string
	Fields  []*Node
	Methods []*Node
}
type MethodDeclNode struct {
	Name       string
	ReturnType Type
	Params     []*Node
	Body       []*Node
	IsPublic   bool
	IsStatic   bool
}
type ParamNode struct {
	Name string
	Type Type
}
type VarDeclNode struct {
	Name string
	Type Type
	Init *Node
}
type BlockNode struct{ Stmts []*Node }
type IfNode struct{ Cond, ThenBody, ElseBody *Node }
type WhileNode struct{ Cond, Body *Node }
type ExprStmtNode struct{ Expr *Node }
type AssignNode struct {
	Name string
	Rhs  *Node
}
type ArrayAssignNode struct {
	Name       string
	Index, Rhs *Node
}
type ReturnNode struct{ Expr *Node }
type IntLitNode struct{ Value int32 }
type BoolLitNode struct{ Value bool }
type IdentNode struct{ Name string }
type ThisNode struct{}
type BinaryOpNode struct {
	Op          token.Type
	Left, Right *Node
}
type UnaryOpNode struct {
	Op   token.Type
	Expr *Node
}
type ArrayAccessNode struct{ Array, Index *Node }
type LengthNode struct{ Expr *Node }

// CallNode is recv.Method(Args); a nil Receiver means an implicit this.
type CallNode struct {
	Receiver *Node
	Method   string
	Args     []*Node
}
type NewIntArrayNode struct{ Size *Node }
type NewObjectNode struct{ Class string }

// Name returns the dotted import name.
func (d ImportNode) Name() string { return strings.Join(d.Path, ".") }

// IsMain reports whether d is the designated static entry point.
func (d MethodDeclNode) IsMain() bool { return d.Name == "main" && d.IsStatic }

// NormalizeImport turns the bracketed list form "[a, b, C]" into "a.b.C"; dotted
// names pass through unchanged.
func NormalizeImport(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return s
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ".")
}

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}, children ...*Node) *Node {
	node := &Node{Type: nodeType, Tok: tok, Data: data}
	for _, child := range children {
		if child != nil {
			child.Parent = node
		}
	}
	return node
}

func adopt(parent *Node, children []*Node) {
	for _, c := range children {
		if c != nil {
			c.Parent = parent
		}
	}
}

func NewProgram(tok token.Token, imports []*Node, class *Node) *Node {
	node := newNode(tok, Program, ProgramNode{Imports: imports, Class: class}, class)
	adopt(node, imports)
	return node
}
func NewImport(tok token.Token, path []string) *Node {
	return newNode(tok, Import, ImportNode{Path: path})
}
func NewClassDecl(tok token.Token, name, super string, fields, methods []*Node) *Node {
	node := newNode(tok, ClassDecl, ClassDeclNode{Name: name, Super: super, Fields: fields, Methods: methods})
	adopt(node, fields)
	adopt(node, methods)
	return node
}
func NewMethodDecl(tok token.Token, name string, returnType Type, params, body []*Node, isPublic, isStatic bool) *Node {
	node := newNode(tok, MethodDecl, MethodDeclNode{
		Name: name, ReturnType: returnType, Params: params, Body: body, IsPublic: isPublic, IsStatic: isStatic,
	})
	adopt(node, params)
	adopt(node, body)
	return node
}
func NewParam(tok token.Token, name string, typ Type) *Node {
	return newNode(tok, Param, ParamNode{Name: name, Type: typ})
}
func NewVarDecl(tok token.Token, name string, typ Type, init *Node) *Node {
	return newNode(tok, VarDecl, VarDeclNode{Name: name, Type: typ, Init: init}, init)
}
func NewBlock(tok token.Token, stmts []*Node) *Node {
	node := newNode(tok, Block, BlockNode{Stmts: stmts})
	adopt(node, stmts)
	return node
}
func NewIf(tok token.Token, cond, thenBody, elseBody *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, ThenBody: thenBody, ElseBody: elseBody}, cond, thenBody, elseBody)
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body}, cond, body)
}
func NewExprStmt(tok token.Token, expr *Node) *Node {
	return newNode(tok, ExprStmt, ExprStmtNode{Expr: expr}, expr)
}
func NewAssign(tok token.Token, name string, rhs *Node) *Node {
	return newNode(tok, Assign, AssignNode{Name: name, Rhs: rhs}, rhs)
}
func NewArrayAssign(tok token.Token, name string, index, rhs *Node) *Node {
	return newNode(tok, ArrayAssign, ArrayAssignNode{Name: name, Index: index, Rhs: rhs}, index, rhs)
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr}, expr)
}
func NewIntLit(tok token.Token, value int32) *Node {
	return newNode(tok, IntLit, IntLitNode{Value: value})
}
func NewBoolLit(tok token.Token, value bool) *Node {
	return newNode(tok, BoolLit, BoolLitNode{Value: value})
}
func NewIdent(tok token.Token, name string) *Node {
	return newNode(tok, Ident, IdentNode{Name: name})
}
func NewThis(tok token.Token) *Node {
	return newNode(tok, This, ThisNode{})
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right}, left, right)
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr}, expr)
}
func NewArrayAccess(tok token.Token, array, index *Node) *Node {
	return newNode(tok, ArrayAccess, ArrayAccessNode{Array: array, Index: index}, array, index)
}
func NewLength(tok token.Token, expr *Node) *Node {
	return newNode(tok, Length, LengthNode{Expr: expr}, expr)
}
func NewCall(tok token.Token, receiver *Node, method string, args []*Node) *Node {
	node := newNode(tok, Call, CallNode{Receiver: receiver, Method: method, Args: args}, receiver)
	adopt(node, args)
	return node
}
func NewNewIntArray(tok token.Token, size *Node) *Node {
	return newNode(tok, NewIntArray, NewIntArrayNode{Size: size}, size)
}
func NewNewObject(tok token.Token, class string) *Node {
	return newNode(tok, NewObject, NewObjectNode{Class: class})
}

// --- Operators ---

func IsArithmetic(op token.Type) bool {
	switch op {
	case token.Plus, token.Minus, token.Star, token.Slash:
		return true
	}
	return false
}

// IsLogical reports whether op combines two booleans.
func IsLogical(op token.Type) bool { return op == token.AndAnd || op == token.OrOr }

// IsComparison reports whether op compares two operands into a boolean.
func IsComparison(op token.Type) bool {
	switch op {
	case token.Lt, token.Gt, token.Lte, token.Gte, token.EqEq, token.Neq:
		return true
	}
	return false
}

// IsRelational covers every operator yielding a boolean.
func IsRelational(op token.Type) bool { return IsLogical(op) || IsComparison(op) }

// IsLiteral reports whether n is an int or boolean literal.
func IsLiteral(n *Node) bool {
	return n != nil && (n.Type == IntLit || n.Type == BoolLit)
}

// Children returns the direct children of n in source order.
func Children(n *Node) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	add := func(ns ...*Node) {
		for _, c := range ns {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	switch d := n.Data.(type) {
	case ProgramNode:
		add(d.Imports...)
		add(d.Class)
	case ClassDeclNode:
		add(d.Fields...)
		add(d.Methods...)
	case MethodDeclNode:
		add(d.Params...)
		add(d.Body...)
	case VarDeclNode:
		add(d.Init)
	case BlockNode:
		add(d.Stmts...)
	case IfNode:
		add(d.Cond, d.ThenBody, d.ElseBody)
	case WhileNode:
		add(d.Cond, d.Body)
	case ExprStmtNode:
		add(d.Expr)
	case AssignNode:
		add(d.Rhs)
	case ArrayAssignNode:
		add(d.Index, d.Rhs)
	case ReturnNode:
		add(d.Expr)
	case BinaryOpNode:
		add(d.Left, d.Right)
	case UnaryOpNode:
		add(d.Expr)
	case ArrayAccessNode:
		add(d.Array, d.Index)
	case LengthNode:
		add(d.Expr)
	case CallNode:
		add(d.Receiver)
		add(d.Args...)
	case NewIntArrayNode:
		add(d.Size)
	}
	return out
}

// Walk visits n and its descendants in preorder; returning false skips a subtree.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}
