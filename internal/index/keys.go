package index

import "github.com/alucardeht/coffeeidx/internal/definition"

// KeysFor returns the keys a definition is filed under.
func KeysFor(d definition.Definition) []Key {
	switch d.Kind {
	case definition.Class:
		return []Key{ClassKey, RootClassKey}
	case definition.Method:
		if d.Scope == definition.ClassMember {
			return []Key{MethodKey, ClassMethodKey}
		}
		return []Key{RootMethodKey}
	case definition.Field:
		if d.Scope == definition.ClassMember {
			return []Key{FieldKey, ClassFieldKey}
		}
		return []Key{RootFieldKey}
	case definition.Parameter:
		return []Key{MethodParamKey}
	default:
		return nil
	}
}

// Flatten encodes every definition of an outline under each of its keys.
func Flatten(o *definition.Outline) []Entry {
	if o == nil {
		return nil
	}
	entries := make([]Entry, 0, 2*o.Len())
	for _, d := range o.Definitions {
		value := definition.Encode(d)
		for _, k := range KeysFor(d) {
			entries = append(entries, Entry{Key: k, Value: value})
		}
	}
	return entries
}
