package typeChecker

type Kind int

const (
	KindError Kind = iota
	KindVoid
	KindInt
	KindBool
	KindIntArray
	KindStringArray
	// KindClass is the class being compiled.
	KindClass
	// KindUnresolved is an external type or member whose shape is not known here.
	KindUnresolved
	// KindClassRef is an identifier naming an imported class, as in io.println().
	KindClassRef
	// KindLength is the result of .length; it behaves as int everywhere.
	KindLength
)

// Origin says why a type is unresolved.
type Origin int

const (
	Imported Origin = iota
	Inherited
	// Deferred marks the result of a call into a class we cannot see.
	Deferred
)

type Type struct {
	Kind   Kind
	Name   string
	Origin Origin
}

var (
	ErrorType       = Type{Kind: KindError}
	VoidType        = Type{Kind: KindVoid}
	IntType         = Type{Kind: KindInt}
	BoolType        = Type{Kind: KindBool}
	IntArrayType    = Type{Kind: KindIntArray}
	StringArrayType = Type{Kind: KindStringArray}
	LengthType      = Type{Kind: KindLength}
)

func ClassType(name string) Type { return Type{Kind: KindClass, Name: name} }
func UnresolvedType(name string, o Origin) Type { return Type{Kind: KindUnresolved, Name: name, Origin: o} }
func ClassRefType(name string) Type { return Type{Kind: KindClassRef, Name: name} }
func DeferredType(method string) Type { return UnresolvedType(method, Deferred) }

func (t Type) String() string {
	switch t.Kind {
	case KindError:
		return "error"
	case KindVoid:
		return "void"
	case KindInt, KindLength:
		return "int"
	case KindBool:
		return "boolean"
	case KindIntArray:
		return "int[]"
	case KindStringArray:
		return "String[]"
	case KindUnresolved:
		if t.Origin == Deferred {
			return "access"
		}
	}
	return t.Name
}

func (t Type) IsError() bool    { return t.Kind == KindError }
func (t Type) IsDeferred() bool { return t.Kind == KindUnresolved && t.Origin == Deferred }

// IsExternal reports whether t comes from a class the compiler cannot inspect.
func (t Type) IsExternal() bool { return t.Kind == KindUnresolved || t.Kind == KindClassRef }

func (t Type) isObject() bool {
	return t.Kind == KindClass || t.Kind == KindClassRef || (t.Kind == KindUnresolved && t.Origin != Deferred)
}

// intLike accepts int and length. A deferred call result may be anything, so it
// passes too; imported and inherited objects do not.
func (t Type) intLike() bool {
	return t.Kind == KindInt || t.Kind == KindLength || t.IsDeferred()
}

func (t Type) boolLike() bool { return t.Kind == KindBool || t.IsDeferred() }

func (t Type) arrayLike() bool { return t.Kind == KindIntArray || t.IsDeferred() }

// strip drops the import/extends tags so types compare by their declared shape.
func (t Type) strip() Type {
	switch {
	case t.Kind == KindLength:
		return IntType
	case t.isObject():
		return Type{Kind: KindClass, Name: t.Name}
	}
	return t
}

// Equal compares two types ignoring how an object type was resolved.
func (t Type) Equal(u Type) bool { return t.strip() == u.strip() }

type Init int

const (
	InitUnknown Init = iota
	InitTrue
	InitFalse
)

type result struct {
	typ  Type
	init Init
}

var errResult = result{typ: ErrorType}

func known(t Type) result { return result{typ: t, init: InitTrue} }
