package ir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNum
	tokStr
	tokPunct
)

type tok struct {
	kind tokKind
	text string
}

var multiPunct = []string{":=", "<=", ">=", "==", "!=", "&&", "||"}

// scan splits one OLLIR line into tokens.
func scan(line string) ([]tok, error) {
	var toks []tok
	rs := []rune(line)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsLetter(r) || r == '_' || r == '$':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_' || rs[j] == '$') {
				j++
			}
			toks = append(toks, tok{tokIdent, string(rs[i:j])})
			i = j
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i + 1
			for j < len(rs) && unicode.IsDigit(rs[j]) {
				j++
			}
			toks = append(toks, tok{tokNum, string(rs[i:j])})
			i = j
		case r == '"':
			j := i + 1
			for j < len(rs) && rs[j] != '"' {
				if rs[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(rs) {
				return nil, fmt.Errorf("unterminated string")
			}
			s, err := strconv.Unquote(string(rs[i : j+1]))
			if err != nil {
				return nil, fmt.Errorf("bad string %s: %w", string(rs[i:j+1]), err)
			}
			toks = append(toks, tok{tokStr, s})
			i = j + 1
		default:
			matched := false
			for _, mp := range multiPunct {
				if strings.HasPrefix(string(rs[i:]), mp) {
					toks = append(toks, tok{tokPunct, mp})
					i += len(mp)
					matched = true
					break
				}
			}
			if !matched {
				if !strings.ContainsRune("()[]{},.;:+-*/<>!", r) {
					return nil, fmt.Errorf("unexpected character %q", r)
				}
				toks = append(toks, tok{tokPunct, string(r)})
				i++
			}
		}
	}
	return toks, nil
}

type parseError struct{ err error }

type lineParser struct {
	toks  []tok
	pos   int
	class string
}

func (p *lineParser) fail(format string, args ...interface{}) {
	panic(parseError{fmt.Errorf(format, args...)})
}

func (p *lineParser) peek() tok {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return tok{kind: tokEOF}
}

func (p *lineParser) peekAt(n int) tok {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return tok{kind: tokEOF}
}

func (p *lineParser) next() tok {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *lineParser) is(text string) bool {
	t := p.peek()
	return (t.kind == tokPunct || t.kind == tokIdent) && t.text == text
}

func (p *lineParser) accept(text string) bool {
	if p.is(text) {
		p.pos++
		return true
	}
	return false
}

func (p *lineParser) expect(text string) {
	if !p.accept(text) {
		p.fail("expected %q, found %q", text, p.peek().text)
	}
}

func (p *lineParser) ident() string {
	t := p.next()
	if t.kind != tokIdent {
		p.fail("expected a name, found %q", t.text)
	}
	return t.text
}

func (p *lineParser) done() {
	if p.peek().kind != tokEOF {
		p.fail("unexpected %q", p.peek().text)
	}
}

// typ reads a dotted type suffix, including the leading dot.
func (p *lineParser) typ() Type {
	p.expect(".")
	switch name := p.ident(); name {
	case "i32":
		return Int
	case "bool":
		return Bool
	case "V":
		return Void
	case "array":
		p.expect(".")
		switch elem := p.ident(); elem {
		case "i32":
			return IntArray
		case "String":
			return StringArray
		default:
			p.fail("unsupported array element %q", elem)
		}
	default:
		return ClassType(name)
	}
	return Void
}

func (p *lineParser) value() Value {
	t := p.next()
	switch t.kind {
	case tokNum:
		n, err := strconv.ParseInt(t.text, 10, 32)
		if err != nil {
			p.fail("bad literal %q", t.text)
		}
		return &Literal{Value: int32(n), Typ: p.typ()}
	case tokIdent:
		if t.text == "this" {
			return &This{Class: p.class}
		}
		param := 0
		name := t.text
		if strings.HasPrefix(name, "$") {
			n, err := strconv.Atoi(name[1:])
			if err != nil || n < 1 {
				p.fail("bad parameter reference %q", name)
			}
			param = n
			p.expect(".")
			name = p.ident()
		} else if !p.is(".") && !p.is("[") {
			return &ClassRef{Name: name}
		}
		if p.accept("[") {
			index := p.value()
			p.expect("]")
			if elem := p.typ(); elem != Int {
				p.fail("array element typed %s", elem)
			}
			return &ArrayElem{Array: &Operand{Name: name, Typ: IntArray, Param: param}, Index: index}
		}
		return &Operand{Name: name, Typ: p.typ(), Param: param}
	}
	p.fail("expected a value, found %q", t.text)
	return nil
}

func (p *lineParser) operand() *Operand {
	v, ok := p.value().(*Operand)
	if !ok {
		p.fail("expected a named operand")
	}
	return v
}

var binaryOps = map[string]Op{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv,
	"<": OpLt, ">": OpGt, "<=": OpLte, ">=": OpGte, "==": OpEq, "!=": OpNeq,
	"&&": OpAnd, "||": OpOr,
}

var callKinds = map[string]CallKind{
	"invokevirtual": InvokeVirtual, "invokespecial": InvokeSpecial, "invokestatic": InvokeStatic,
	"new": New, "arraylength": ArrayLength, "ldc": Ldc,
}

// rhs reads anything that may follow :=, stand alone, or sit inside if (...).
func (p *lineParser) rhs() Instr {
	t := p.peek()
	if t.kind == tokIdent && p.peekAt(1).text == "(" {
		if kind, ok := callKinds[t.text]; ok {
			return p.call(kind)
		}
		switch t.text {
		case "getfield":
			p.pos += 2
			obj := p.value()
			p.expect(",")
			field := p.operand()
			p.expect(")")
			p.typ()
			return &GetField{Object: obj, Field: field}
		case "putfield":
			p.pos += 2
			obj := p.value()
			p.expect(",")
			field := p.operand()
			p.expect(",")
			val := p.value()
			p.expect(")")
			p.typ()
			return &PutField{Object: obj, Field: field, Val: val}
		}
	}
	if p.accept("!") {
		if p.typ() != Bool {
			p.fail("negation must be typed bool")
		}
		return &UnaryOp{Op: OpNot, Operand: p.value()}
	}
	left := p.value()
	if op, ok := binaryOps[p.peek().text]; ok && p.peek().kind == tokPunct {
		p.pos++
		typ := p.typ()
		return &BinaryOp{Op: op, Left: left, Right: p.value(), Typ: typ}
	}
	return &NoOp{Val: left}
}

func (p *lineParser) call(kind CallKind) Instr {
	p.pos += 2
	c := &Call{Kind: kind, Target: p.value()}
	if kind == InvokeVirtual || kind == InvokeSpecial || kind == InvokeStatic {
		p.expect(",")
		m := p.next()
		if m.kind != tokStr {
			p.fail("expected a method name string")
		}
		c.Method = m.text
	}
	for p.accept(",") {
		c.Args = append(c.Args, p.value())
	}
	p.expect(")")
	c.Ret = p.typ()
	return c
}

func (p *lineParser) hasAssign() bool {
	for _, t := range p.toks {
		if t.kind == tokPunct && t.text == ":=" {
			return true
		}
	}
	return false
}

func (p *lineParser) instr() Instr {
	var in Instr
	switch {
	case p.hasAssign():
		dest := p.value()
		p.expect(":=")
		typ := p.typ()
		in = &Assign{Dest: dest, Typ: typ, Rhs: p.rhs()}
	case p.is("goto") && p.peekAt(1).kind == tokIdent:
		p.pos++
		in = &Goto{Label: p.ident()}
	case p.is("if") && p.peekAt(1).text == "(":
		p.pos += 2
		cond := p.rhs()
		p.expect(")")
		p.expect("goto")
		in = &Branch{Cond: cond, Label: p.ident()}
	case p.is("ret") && p.peekAt(1).text == ".":
		p.pos++
		r := &Return{Typ: p.typ()}
		if p.peek().kind != tokEOF {
			r.Val = p.value()
		}
		in = r
	default:
		in = p.rhs()
	}
	p.done()
	return in
}

type classParser struct {
	imports []string
	class   *Class
	method  *Method
	closed  bool
}

// Parse reads OLLIR text as produced by (*Class).String.
func Parse(src string) (cls *Class, err error) {
	cp := &classParser{}
	lineNo := 0
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(parseError)
			if !ok {
				panic(r)
			}
			cls, err = nil, fmt.Errorf("ollir line %d: %w", lineNo, pe.err)
		}
	}()
	for i, raw := range strings.Split(src, "\n") {
		lineNo = i + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		cp.line(line)
	}
	if cp.class == nil || !cp.closed {
		return nil, fmt.Errorf("ollir: unexpected end of input")
	}
	return cp.class, nil
}

func (cp *classParser) line(line string) {
	toks, err := scan(line)
	if err != nil {
		panic(parseError{err})
	}
	p := &lineParser{toks: toks}
	if cp.class != nil {
		p.class = cp.class.Name
	}

	switch {
	case cp.closed:
		p.fail("text after the end of the class")
	case cp.class == nil && p.is("import"):
		p.pos++
		parts := []string{p.ident()}
		for p.accept(".") {
			parts = append(parts, p.ident())
		}
		p.expect(";")
		p.done()
		cp.imports = append(cp.imports, strings.Join(parts, "."))
		return
	case cp.class == nil:
		cp.class = &Class{Name: p.ident(), Imports: cp.imports}
		if p.accept("extends") {
			cp.class.Super = p.ident()
		}
		p.expect("{")
		p.done()
		return
	}
	cp.classBody(p, line)
}

func (cp *classParser) classBody(p *lineParser, line string) {
	if cp.method != nil {
		switch {
		case p.is("}") && len(p.toks) == 1:
			cp.class.Methods = append(cp.class.Methods, cp.method)
			cp.method = nil
		case strings.HasSuffix(line, ":") && len(p.toks) == 2 && p.toks[0].kind == tokIdent:
			cp.method.Mark(p.toks[0].text)
		case strings.HasSuffix(line, ";"):
			p.toks = p.toks[:len(p.toks)-1]
			cp.method.Emit(p.instr())
		default:
			p.fail("expected an instruction, a label or '}'")
		}
		return
	}

	switch {
	case p.is("}") && len(p.toks) == 1:
		cp.closed = true
	case p.accept("."):
		switch p.ident() {
		case "field":
			p.expect("private")
			name := p.ident()
			typ := p.typ()
			p.expect(";")
			p.done()
			cp.class.Fields = append(cp.class.Fields, &Field{Name: name, Typ: typ})
		case "construct":
			if p.ident() != cp.class.Name {
				p.fail("constructor does not match class %s", cp.class.Name)
			}
			p.expect("(")
			p.expect(")")
			p.typ()
			p.expect("{")
			p.done()
			cp.method = &Method{Name: "<init>", IsConstructor: true, Ret: Void}
		case "method":
			p.expect("public")
			m := &Method{IsStatic: p.accept("static")}
			m.Name = p.ident()
			p.expect("(")
			for i := 1; !p.is(")"); i++ {
				if i > 1 {
					p.expect(",")
				}
				name := p.ident()
				m.Params = append(m.Params, &Operand{Name: name, Typ: p.typ(), Param: i})
			}
			p.expect(")")
			m.Ret = p.typ()
			p.expect("{")
			p.done()
			cp.method = m
		default:
			p.fail("unknown directive")
		}
	default:
		p.fail("unexpected line in class body")
	}
}
