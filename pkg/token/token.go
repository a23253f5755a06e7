package token

type Type int

const (
	EOF Type = iota
	Illegal
	Ident
	Number

	// Keywords
	Import
	Class
	Extends
	Public
	Static
	Void
	StringKeyword
	Int
	Boolean
	If
	Else
	While
	Return
	True
	False
	This
	New

	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Dot

	// Operators
	Eq
	Plus
	Minus
	Star
	Slash
	Lt
	Gt
	Lte
	Gte
	EqEq
	Neq
	AndAnd
	OrOr
	Not
)

var KeywordMap = map[string]Type{
	"import":  Import,
	"class":   Class,
	"extends": Extends,
	"public":  Public,
	"static":  Static,
	"void":    Void,
	"String":  StringKeyword,
	"int":     Int,
	"boolean": Boolean,
	"if":      If,
	"else":    Else,
	"while":   While,
	"return":  Return,
	"true":    True,
	"false":   False,
	"this":    This,
	"new":     New,
}

var symbolStrings = map[Type]string{
	EOF:      "end of file",
	Illegal:  "illegal character",
	Ident:    "identifier",
	Number:   "integer literal",
	LParen:   "(",
	RParen:   ")",
	LBrace:   "{",
	RBrace:   "}",
	LBracket: "[",
	RBracket: "]",
	Semi:     ";",
	Comma:    ",",
	Dot:      ".",
	Eq:       "=",
	Plus:     "+",
	Minus:    "-",
	Star:     "*",
	Slash:    "/",
	Lt:       "<",
	Gt:       ">",
	Lte:      "<=",
	Gte:      ">=",
	EqEq:     "==",
	Neq:      "!=",
	AndAnd:   "&&",
	OrOr:     "||",
	Not:      "!",
}

// Reverse mapping from Type to the keyword or symbol string
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range symbolStrings {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return "unknown"
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
