package edit

import (
	"fmt"
	"slices"
	"strings"
)

// Field is a class field declaration
type Field struct {
	Name        string
	Type        string
	Modifiers   []string
	Line        int
	Declaration string // source text, synthesized when empty
}

// declaration returns the source text of the field
func (f Field) declaration() string {
	if f.Declaration != "" {
		return f.Declaration
	}
	parts := append(slices.Clone(f.Modifiers), f.Type, f.Name)
	return strings.Join(parts, " ") + ";"
}

func (f Field) visibility() string {
	for _, mod := range f.Modifiers {
		switch mod {
		case "public", "protected", "private":
			return mod
		}
	}
	return "package"
}

// Class is the metadata of a class outside its method bodies
type Class struct {
	Name        string
	Modifiers   []string
	Line        int
	Declaration string
	Fields      []Field
}

func (c Class) declaration() string {
	if c.Declaration != "" {
		return c.Declaration
	}
	parts := append(slices.Clone(c.Modifiers), "class", c.Name)
	return strings.Join(parts, " ")
}

// DiffClasses reports class modifier changes and field insertions, deletions
// and updates. Fields are paired by name first; a remaining source field is
// then paired with the first remaining destination field of the same type and
// visibility, which covers renames.
func DiffClasses(before, after Class) []Operation {
	var ops []Operation

	if !sameSet(before.Modifiers, after.Modifiers) {
		ops = append(ops, Update(nil, before.Line, after.Line, before.declaration(), after.declaration(),
			"Class modifiers differ"))
	}

	matched := make(map[string]bool) // destination field names
	paired := make(map[string]bool)  // source field names

	byName := make(map[string]Field, len(after.Fields))
	for _, f := range after.Fields {
		byName[f.Name] = f
	}

	for _, f := range before.Fields {
		other, ok := byName[f.Name]
		if !ok {
			continue
		}
		matched[other.Name] = true
		paired[f.Name] = true
		if f.Type != other.Type || !sameSet(f.Modifiers, other.Modifiers) {
			ops = append(ops, fieldUpdate(f, other))
		}
	}

	for _, f := range before.Fields {
		if paired[f.Name] {
			continue
		}
		idx := slices.IndexFunc(after.Fields, func(other Field) bool {
			return !matched[other.Name] && other.Type == f.Type && other.visibility() == f.visibility()
		})
		if idx < 0 {
			ops = append(ops, Delete(nil, f.Line, f.declaration()))
			continue
		}
		other := after.Fields[idx]
		matched[other.Name] = true
		ops = append(ops, fieldUpdate(f, other))
	}

	for _, f := range after.Fields {
		if !matched[f.Name] {
			ops = append(ops, Insert(nil, f.Line, f.declaration()))
		}
	}
	return ops
}

func fieldUpdate(before, after Field) Operation {
	return Update(nil, before.Line, after.Line, before.declaration(), after.declaration(),
		fmt.Sprintf("Field %s differs", before.Name))
}
