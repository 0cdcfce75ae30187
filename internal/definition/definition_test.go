package definition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOutline() *Outline {
	o := NewOutline("src/foo.coffee")
	foo := o.Add(Definition{ID: NewID(Class, 6), Name: "Foo", Kind: Class, Scope: Root,
		Position: Position{Start: 6, End: 9, Line: 1, Column: 7}})
	bar := o.Add(Definition{ID: NewID(Method, 12), Name: "bar", Kind: Method, Scope: ClassMember,
		ParentID: foo.ID, Position: Position{Start: 12, End: 15, Line: 2, Column: 3}})
	o.Add(Definition{ID: NewID(Parameter, 18), Name: "x", Kind: Parameter, Scope: Local,
		ParentID: bar.ID, Position: Position{Start: 18, End: 19, Line: 2, Column: 9}})
	return o
}

func TestEncodeDecode(t *testing.T) {
	o := sampleOutline()
	for _, d := range o.Definitions {
		value := Encode(d)
		got, err := Decode(value, o.File)
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

func TestEncode_StartsWithName(t *testing.T) {
	d := sampleOutline().Definitions[1]
	assert.Equal(t, "bar;M;C;M12;C6;12;15;2;3", Encode(d))
}

func TestEncode_EscapesSeparator(t *testing.T) {
	d := Definition{ID: "F0", Name: "odd;name%", Kind: Field, Scope: Root}
	value := Encode(d)
	assert.Equal(t, EscapeName("odd;name%"), value[:len(EscapeName("odd;name%"))])

	got, err := Decode(value, "a.coffee")
	require.NoError(t, err)
	assert.Equal(t, "odd;name%", got.Name)
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]string{
		"too few fields": "foo;M;R",
		"bad kind":       "foo;X;R;M0;;0;3;1;1",
		"bad scope":      "foo;M;Q;M0;;0;3;1;1",
		"bad number":     "foo;M;R;M0;;zero;3;1;1",
		"empty name":     ";M;R;M0;;0;3;1;1",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(value, "a.coffee")
			assert.ErrorIs(t, err, ErrMalformedValue)
		})
	}
}

func TestOutline_ParentLookup(t *testing.T) {
	o := sampleOutline()
	x := o.Named("x")[0]

	bar, ok := o.Parent(x)
	require.True(t, ok)
	assert.Equal(t, "bar", bar.Name)

	foo, ok := o.Parent(bar)
	require.True(t, ok)
	assert.Equal(t, Class, foo.Kind)

	_, ok = o.Parent(foo)
	assert.False(t, ok)

	assert.Len(t, o.Children(foo.ID), 1)
	assert.Len(t, o.OfKind(Parameter), 1)
}

func TestOutline_ValidateAcceptsWellFormed(t *testing.T) {
	require.NoError(t, sampleOutline().Validate())
}

func TestOutline_ValidateRejectsBrokenScopes(t *testing.T) {
	o := NewOutline("a.coffee")
	cls := o.Add(Definition{ID: "C0", Name: "A", Kind: Class, Scope: Root})
	o.Add(Definition{ID: "F10", Name: "f", Kind: Field, Scope: Root, ParentID: cls.ID})
	o.Add(Definition{ID: "M20", Name: "m", Kind: Method, Scope: ClassMember})
	o.Add(Definition{ID: "P30", Name: "p", Kind: Parameter, Scope: Local, ParentID: cls.ID})
	o.Add(Definition{ID: "F40", Name: "g", Kind: Field, Scope: ClassMember, ParentID: "C999"})

	err := o.Validate()
	require.Error(t, err)
	for _, name := range []string{`"f"`, `"m"`, `"p"`, `"g"`} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestDefinition_JSON(t *testing.T) {
	d := sampleOutline().Definitions[1]
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"method"`)
	assert.Contains(t, string(b), `"scope":"class_member"`)

	var back Definition
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d, back)
}
