package definition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedValue = errors.New("malformed definition value")

const (
	separator   = ";"
	valueFields = 9
)

var nameEscaper = strings.NewReplacer("%", "%25", ";", "%3B")
var nameUnescaper = strings.NewReplacer("%3B", ";", "%25", "%")

// EscapeName applies the value encoding to a name or name prefix, so prefix
// queries line up with encoded values.
func EscapeName(name string) string {
	return nameEscaper.Replace(name)
}

// Encode renders d as name;kind;scope;id;parent;start;end;line;column.
// The value begins with the name, so a prefix search on values is a prefix
// search on names. The file is not part of the value; it is stored beside it.
func Encode(d Definition) string {
	fields := []string{
		EscapeName(d.Name),
		string(kindLetter(d.Kind)),
		string(scopeLetter(d.Scope)),
		d.ID,
		d.ParentID,
		strconv.Itoa(d.Position.Start),
		strconv.Itoa(d.Position.End),
		strconv.Itoa(d.Position.Line),
		strconv.Itoa(d.Position.Column),
	}
	return strings.Join(fields, separator)
}

// Decode is the factory that rebuilds a Definition from a stored value and the
// file handle the value was stored under.
func Decode(value, file string) (Definition, error) {
	fields := strings.Split(value, separator)
	if len(fields) != valueFields {
		return Definition{}, fmt.Errorf("%w: %d fields in %q", ErrMalformedValue, len(fields), value)
	}

	kind, ok := kindFromLetter(fields[1])
	if !ok {
		return Definition{}, fmt.Errorf("%w: kind %q", ErrMalformedValue, fields[1])
	}
	scope, ok := scopeFromLetter(fields[2])
	if !ok {
		return Definition{}, fmt.Errorf("%w: scope %q", ErrMalformedValue, fields[2])
	}
	if fields[0] == "" || fields[3] == "" {
		return Definition{}, fmt.Errorf("%w: empty name or id in %q", ErrMalformedValue, value)
	}

	var nums [4]int
	for i := range nums {
		n, err := strconv.Atoi(fields[5+i])
		if err != nil {
			return Definition{}, fmt.Errorf("%w: %v", ErrMalformedValue, err)
		}
		nums[i] = n
	}

	return Definition{
		ID:       fields[3],
		Name:     nameUnescaper.Replace(fields[0]),
		Kind:     kind,
		Scope:    scope,
		File:     file,
		ParentID: fields[4],
		Position: Position{Start: nums[0], End: nums[1], Line: nums[2], Column: nums[3]},
	}, nil
}

func kindLetter(k Kind) byte {
	switch k {
	case Class:
		return 'C'
	case Method:
		return 'M'
	case Field:
		return 'F'
	case Parameter:
		return 'P'
	default:
		return '?'
	}
}

func kindFromLetter(s string) (Kind, bool) {
	switch s {
	case "C":
		return Class, true
	case "M":
		return Method, true
	case "F":
		return Field, true
	case "P":
		return Parameter, true
	default:
		return 0, false
	}
}

func scopeLetter(s Scope) byte {
	switch s {
	case Root:
		return 'R'
	case ClassMember:
		return 'C'
	case Local:
		return 'L'
	default:
		return '?'
	}
}

func scopeFromLetter(s string) (Scope, bool) {
	switch s {
	case "R":
		return Root, true
	case "C":
		return ClassMember, true
	case "L":
		return Local, true
	default:
		return 0, false
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for _, c := range []Kind{Class, Method, Field, Parameter} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q", b)
}

func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scope) UnmarshalText(b []byte) error {
	for _, c := range []Scope{Root, ClassMember, Local} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown scope %q", b)
}
