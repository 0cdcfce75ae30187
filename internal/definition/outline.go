package definition

import (
	"errors"
	"fmt"
)

// Outline holds the definitions extracted from one file, in source order.
type Outline struct {
	File        string
	Definitions []Definition

	byID map[string]int
}

func NewOutline(file string) *Outline {
	return &Outline{File: file, byID: make(map[string]int)}
}

// Add stamps d with the outline's file and appends it.
func (o *Outline) Add(d Definition) Definition {
	d.File = o.File
	o.byID[d.ID] = len(o.Definitions)
	o.Definitions = append(o.Definitions, d)
	return d
}

func (o *Outline) Len() int {
	return len(o.Definitions)
}

func (o *Outline) Lookup(id string) (Definition, bool) {
	i, ok := o.byID[id]
	if !ok {
		return Definition{}, false
	}
	return o.Definitions[i], true
}

func (o *Outline) Parent(d Definition) (Definition, bool) {
	if !d.HasParent() {
		return Definition{}, false
	}
	return o.Lookup(d.ParentID)
}

func (o *Outline) Children(id string) []Definition {
	var out []Definition
	for _, d := range o.Definitions {
		if d.ParentID == id {
			out = append(out, d)
		}
	}
	return out
}

func (o *Outline) OfKind(k Kind) []Definition {
	var out []Definition
	for _, d := range o.Definitions {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}

func (o *Outline) Named(name string) []Definition {
	var out []Definition
	for _, d := range o.Definitions {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

// Validate checks the scope and parent rules of every definition.
func (o *Outline) Validate() error {
	var errs []error
	for _, d := range o.Definitions {
		if err := o.validate(d); err != nil {
			errs = append(errs, fmt.Errorf("%s %q at %d: %w", d.Kind, d.Name, d.Position.Start, err))
		}
	}
	return errors.Join(errs...)
}

func (o *Outline) validate(d Definition) error {
	parent, hasParent := o.Parent(d)
	if d.HasParent() && !hasParent {
		return fmt.Errorf("dangling parent %q", d.ParentID)
	}

	switch d.Kind {
	case Class:
		if d.Scope != Root || hasParent {
			return errors.New("class must be a root declaration")
		}
	case Method, Field:
		switch d.Scope {
		case Root:
			if hasParent {
				return errors.New("root declaration has a parent")
			}
		case ClassMember:
			if !hasParent || parent.Kind != Class {
				return errors.New("class member without an enclosing class")
			}
		default:
			return fmt.Errorf("invalid scope %s", d.Scope)
		}
	case Parameter:
		if d.Scope != Local || !hasParent || parent.Kind != Method {
			return errors.New("parameter must be local to a method")
		}
	default:
		return fmt.Errorf("unknown kind %d", d.Kind)
	}
	return nil
}
