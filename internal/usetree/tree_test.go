package usetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTree_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []string{
		"std::fmt",
		"std::fmt::Display",
		"std::{fmt, io}",
		"std::io::{self, Read, Write}",
		"std::collections::*",
		"::std::fmt",
		"::{a, b}",
		"{foo::bar, baz::qux}",
		"crate::a::{b::{c, d}, e}",
		"super::x as y",
		"a::b::{self as c, d}",
		"a::b as _",
		"r#type::r#fn",
		"$crate::inner",
		"a::{}",
		"*",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			t.Parallel()
			tree, err := ParseTree(src)
			require.NoError(t, err)
			assert.Equal(t, src, tree.String())
		})
	}
}

func TestParseTree_WhitespaceAndComments(t *testing.T) {
	t.Parallel()

	tree, err := ParseTree("std :: { fmt , /* io, */ io :: Read , // trailing\n }")
	require.NoError(t, err)
	assert.Equal(t, "std::{fmt, io::Read}", tree.String())
}

func TestParseTree_Errors(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		"",
		"std::",
		"std::{fmt",
		"std::fmt extra",
		"a as",
		"a::{b,,c}",
	} {
		_, err := ParseTree(src)
		assert.Error(t, err, "input %q", src)
	}
}

func TestParseUse_AttributesAndVisibility(t *testing.T) {
	t.Parallel()

	u, err := ParseUse(`#[cfg(test)] #[allow(unused_imports)] pub(crate) use a::{b, c};`)
	require.NoError(t, err)

	require.Len(t, u.Attrs, 2)
	assert.Equal(t, "#[cfg(test)]", u.Attrs[0].Text)
	assert.Equal(t, "#[allow(unused_imports)]", u.Attrs[1].Text)
	require.NotNil(t, u.Visibility)
	assert.Equal(t, VisPubCrate, u.Visibility.Kind)
	assert.Equal(t, "a::{b, c}", u.Tree.String())
	assert.Equal(t, "#[cfg(test)]\n#[allow(unused_imports)]\npub(crate) use a::{b, c};", u.String())
}

func TestParseUse_Visibilities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want string
	}{
		{"use a;", ""},
		{"pub use a;", "pub"},
		{"pub(crate) use a;", "pub(crate)"},
		{"pub(super) use a;", "pub(super)"},
		{"pub(self) use a;", "pub(self)"},
		{"pub(in crate::m) use a;", "pub(in crate::m)"},
		{"crate use a;", "crate"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			u, err := ParseUse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.Visibility.String())
		})
	}
}

func TestParseUse_AttributeWithBracketsInString(t *testing.T) {
	t.Parallel()

	u, err := ParseUse(`#[doc = "a ] b"] use x;`)
	require.NoError(t, err)
	require.Len(t, u.Attrs, 1)
	assert.Equal(t, `#[doc = "a ] b"]`, u.Attrs[0].Text)
}

func TestParseUse_MissingKeyword(t *testing.T) {
	t.Parallel()

	_, err := ParseUse("pub a::b;")
	assert.Error(t, err)
}

func TestSegmentKinds(t *testing.T) {
	t.Parallel()

	p := MustParseTree("crate::super::self::Self::name").Path
	require.Equal(t, 5, p.Len())
	assert.Equal(t, SegmentCrate, p.Segments[0].Kind)
	assert.Equal(t, SegmentSuper, p.Segments[1].Kind)
	assert.Equal(t, SegmentSelf, p.Segments[2].Kind)
	assert.Equal(t, SegmentSelfType, p.Segments[3].Kind)
	assert.Equal(t, SegmentName, p.Segments[4].Kind)
	assert.True(t, p.Segments[0].IsKeyword())
	assert.False(t, p.Segments[4].IsKeyword())
}

func TestPath_EqualPrefixSuffix(t *testing.T) {
	t.Parallel()

	p := NewPath("std", "collections", "HashMap")
	assert.True(t, p.Equal(NewPath("std", "collections", "HashMap")))
	assert.False(t, p.Equal(NewPath("std", "collections")))

	rooted := p.Clone()
	rooted.Rooted = true
	assert.False(t, p.Equal(rooted), "root qualifier is part of equality")

	assert.Equal(t, "::std::collections", rooted.Prefix(2).String())
	assert.Equal(t, "HashMap", rooted.Suffix(2).String())
	assert.Nil(t, rooted.Suffix(3))

	assert.True(t, SelfPath().IsSelf())
	assert.False(t, NewPath("self", "x").IsSelf())

	var nilPath *Path
	assert.True(t, nilPath.Equal(nil))
	assert.Equal(t, 0, nilPath.Len())
}

func TestUseTree_CloneIsDeep(t *testing.T) {
	t.Parallel()

	orig := MustParseTree("a::{b::{c, d}, e}")
	c := orig.Clone()
	require.True(t, orig.Equal(c))

	c.Children[0].Children[0].Path.Segments[0] = NameSegment("z")
	c.Children = append(c.Children, Leaf(NewPath("f")))
	c.Path.Rooted = true

	assert.Equal(t, "a::{b::{c, d}, e}", orig.String())
	assert.False(t, orig.Equal(c))
}

func TestUseTree_Equal(t *testing.T) {
	t.Parallel()

	assert.True(t, MustParseTree("a::{b, c}").Equal(MustParseTree("a::{b, c}")))
	assert.False(t, MustParseTree("a::{b, c}").Equal(MustParseTree("a::{c, b}")))
	assert.False(t, MustParseTree("a::b").Equal(MustParseTree("a::b as c")))
	assert.False(t, MustParseTree("a::*").Equal(MustParseTree("a")))
	assert.False(t, MustParseTree("a::{b}").Equal(MustParseTree("a::b")))
}

func TestUseTree_Predicates(t *testing.T) {
	t.Parallel()

	assert.True(t, MustParseTree("a::b").IsSimplePath())
	assert.True(t, MustParseTree("a::b as c").IsSimplePath())
	assert.False(t, MustParseTree("a::*").IsSimplePath())
	assert.False(t, MustParseTree("a::{b}").IsSimplePath())

	assert.True(t, MustParseTree("::a").HasLeadingRoot())
	assert.True(t, MustParseTree("::{a}").HasLeadingRoot())
	assert.False(t, MustParseTree("a").HasLeadingRoot())

	assert.True(t, MustParseTree("self").IsBareSelf())
	assert.False(t, MustParseTree("self as x").IsBareSelf())
}

func TestUseTree_ConcretePaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want []string
	}{
		{"std::fmt", []string{"std::fmt"}},
		{"std::io::{self, Read}", []string{"std::io", "std::io::Read"}},
		{"a::{b::{c, d}, e as f}", []string{"a::b::c", "a::b::d", "a::e as f"}},
		{"a::{*, b}", []string{"a::*", "a::b"}},
		{"a::b::*", []string{"a::b::*"}},
		{"::{a, b::c}", []string{"::a", "::b::c"}},
		{"::std::fmt", []string{"::std::fmt"}},
		{"{foo::bar, baz}", []string{"baz", "foo::bar"}},
		{"a::{self as x, b}", []string{"a as x", "a::b"}},
		{"a::{b, b}", []string{"a::b"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MustParseTree(tt.src).ConcretePaths())
		})
	}
}

func TestUse_CloneAndEqual(t *testing.T) {
	t.Parallel()

	u := MustParseUse("#[cfg(test)] pub(in crate::m) use a::{b, c};")
	c := u.Clone()
	require.True(t, u.Equal(c))

	c.Visibility.In.Segments[1] = NameSegment("n")
	c.Attrs[0].Text = "#[cfg(not(test))]"
	assert.Equal(t, "pub(in crate::m)", u.Visibility.String())
	assert.Equal(t, "#[cfg(test)]", u.Attrs[0].Text)
	assert.False(t, u.Equal(c))
}

func TestUseTree_Walk(t *testing.T) {
	t.Parallel()

	var seen []string
	MustParseTree("a::{b::{c}, d}").Walk(func(n *UseTree) {
		seen = append(seen, n.Path.String())
	})
	assert.Equal(t, []string{"a", "b", "c", "d"}, seen)
}
