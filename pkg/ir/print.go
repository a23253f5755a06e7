package ir

import (
	"strings"
)

// String renders the class as OLLIR text. The output is stable and Parse reads it back.
func (c *Class) String() string {
	var sb strings.Builder
	for _, imp := range c.Imports {
		sb.WriteString("import " + imp + ";\n")
	}
	if len(c.Imports) > 0 {
		sb.WriteByte('\n')
	}

	sb.WriteString(c.Name)
	if c.Super != "" && c.Super != "Object" {
		sb.WriteString(" extends " + c.Super)
	}
	sb.WriteString(" {\n")

	for _, f := range c.Fields {
		sb.WriteString("\t.field private " + f.Name + "." + f.Typ.String() + ";\n")
	}
	for _, m := range c.Methods {
		sb.WriteByte('\n')
		writeMethod(&sb, c.Name, m)
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (m *Method) header(className string) string {
	if m.IsConstructor {
		return ".construct " + className + "().V"
	}
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.Name + "." + p.Typ.String()
	}
	static := ""
	if m.IsStatic {
		static = "static "
	}
	return ".method public " + static + m.Name + "(" + strings.Join(params, ", ") + ")." + m.Ret.String()
}

func writeMethod(sb *strings.Builder, className string, m *Method) {
	sb.WriteString("\t" + m.header(className) + " {\n")
	for i, in := range m.Instrs {
		for _, l := range m.LabelsAt(i) {
			sb.WriteString("\t" + l + ":\n")
		}
		sb.WriteString("\t\t" + in.String() + ";\n")
	}
	for _, l := range m.LabelsAt(len(m.Instrs)) {
		sb.WriteString("\t" + l + ":\n")
	}
	sb.WriteString("\t}\n")
}
