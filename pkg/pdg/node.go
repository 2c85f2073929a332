package pdg

import (
	"fmt"
	"strings"
)

// Category classifies the program construct a node stands for
type Category int

const (
	CategoryStatement Category = iota
	CategoryDeclaration
	CategoryControlFlow
	CategoryData
	CategoryRegion
)

var categoryNames = map[Category]string{
	CategoryStatement:   "statement",
	CategoryDeclaration: "declaration",
	CategoryControlFlow: "control_flow",
	CategoryData:        "data",
	CategoryRegion:      "region",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory converts a document category name into a Category.
// Accepts snake_case, camelCase and upper-case spellings.
func ParseCategory(s string) (Category, error) {
	key := normalizeName(s)
	for c, name := range categoryNames {
		if normalizeName(name) == key {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown node category %q: %w", s, ErrMalformedGraph)
}

// Attribute is the structural role of a node inside its method body
type Attribute int

const (
	AttributeNormal Attribute = iota
	AttributeEntry
	AttributeCondHeader
	AttributeLoopHeader
)

var attributeNames = map[Attribute]string{
	AttributeNormal:     "NORMAL",
	AttributeEntry:      "ENTRY",
	AttributeCondHeader: "COND_HEADER",
	AttributeLoopHeader: "LOOP_HEADER",
}

func (a Attribute) String() string {
	if name, ok := attributeNames[a]; ok {
		return name
	}
	return fmt.Sprintf("attribute(%d)", int(a))
}

// ParseAttribute converts a document attribute name into an Attribute.
// An empty string is NORMAL.
func ParseAttribute(s string) (Attribute, error) {
	if s == "" {
		return AttributeNormal, nil
	}
	key := normalizeName(s)
	for a, name := range attributeNames {
		if normalizeName(name) == key {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown structural attribute %q: %w", s, ErrMalformedGraph)
}

// DependencyType labels an edge
type DependencyType int

const (
	DependencyControl DependencyType = iota
	DependencyData
)

func (d DependencyType) String() string {
	switch d {
	case DependencyControl:
		return "CONTROL"
	case DependencyData:
		return "DATA"
	default:
		return fmt.Sprintf("dependency(%d)", int(d))
	}
}

// ParseDependencyType converts "control"/"data" (any case) into a DependencyType
func ParseDependencyType(s string) (DependencyType, error) {
	switch normalizeName(s) {
	case "control":
		return DependencyControl, nil
	case "data":
		return DependencyData, nil
	}
	return 0, fmt.Errorf("unknown dependency type %q: %w", s, ErrMalformedGraph)
}

// Node is a program point or control region in a dependence graph.
// ID is the only identity key; Label is used for similarity only.
type Node struct {
	ID        int64
	Category  Category
	Attribute Attribute
	Label     string
	Line      int // 0 when unknown, negative when the producer could not map it
	RegionID  int // set for Region nodes
}

func (n *Node) String() string {
	if n.Category == CategoryRegion {
		return fmt.Sprintf("#%d region %d", n.ID, n.RegionID)
	}
	return fmt.Sprintf("#%d %s %q", n.ID, n.Category, n.Label)
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}
