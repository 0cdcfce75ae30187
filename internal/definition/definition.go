// Package definition models named declarations extracted from CoffeeScript
// sources and their compact index encoding.
package definition

import (
	"fmt"
	"strconv"
)

type Kind int

const (
	Class Kind = iota + 1
	Method
	Field
	Parameter
)

func (k Kind) String() string {
	switch k {
	case Class:
		return "class"
	case Method:
		return "method"
	case Field:
		return "field"
	case Parameter:
		return "parameter"
	default:
		return "unknown"
	}
}

// Scope is where a definition is declared. Parameters are Local to their method.
type Scope int

const (
	Root Scope = iota + 1
	ClassMember
	Local
)

func (s Scope) String() string {
	switch s {
	case Root:
		return "root"
	case ClassMember:
		return "class_member"
	case Local:
		return "local"
	default:
		return "unknown"
	}
}

type Position struct {
	Start  int `json:"start"`
	End    int `json:"end"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Definition is a value object. The parent link is the parent's ID, resolved
// through an Outline or the query index, never a pointer.
type Definition struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	Scope    Scope    `json:"scope"`
	File     string   `json:"file"`
	Position Position `json:"position"`
	ParentID string   `json:"parent_id,omitempty"`
}

// NewID builds the file-unique ID of a definition whose name starts at offset.
func NewID(kind Kind, offset int) string {
	return string(kindLetter(kind)) + strconv.Itoa(offset)
}

func (d Definition) HasParent() bool {
	return d.ParentID != ""
}

func (d Definition) String() string {
	return fmt.Sprintf("%s %s %s (%s:%d:%d)", d.Scope, d.Kind, d.Name, d.File, d.Position.Line, d.Position.Column)
}
