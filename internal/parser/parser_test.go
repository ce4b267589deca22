package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polygen/polygen/internal/ast"
)

func TestParsePrimitiveTypes(t *testing.T) {
	for _, tc := range []struct {
		keyword string
		want    ast.BasicType
	}{
		{"string", ast.TypeString},
		{"bool", ast.TypeBool},
		{"bytes", ast.TypeBytes},
		{"timestamp", ast.TypeTimestamp},
		{"i8", ast.TypeI8},
		{"i16", ast.TypeI16},
		{"i32", ast.TypeI32},
		{"i64", ast.TypeI64},
		{"u8", ast.TypeU8},
		{"u16", ast.TypeU16},
		{"u32", ast.TypeU32},
		{"u64", ast.TypeU64},
		{"f32", ast.TypeF32},
		{"f64", ast.TypeF64},
	} {
		tc := tc
		t.Run(tc.keyword, func(t *testing.T) {
			src := "table T { f: " + tc.keyword + "; }"
			root, err := ParseString("t.poly", src)
			require.NoError(t, err)
			require.Len(t, root.Defs, 1)
			field := root.Defs[0].Table.Members[0].Field
			require.Equal(t, ast.TypeNameBasic, field.Type.Base.Kind)
			assert.Equal(t, tc.want, field.Type.Base.Basic)
		})
	}
}

// TestParseDottedPathIsNotPrimitive guards against an actual reference
// (to a type outside the primitive set) being misparsed as a primitive.
func TestParseDottedPathIsNotPrimitive(t *testing.T) {
	root, err := ParseString("t.poly", "table T { owner: game.Player; }")
	require.NoError(t, err)
	field := root.Defs[0].Table.Members[0].Field
	require.Equal(t, ast.TypeNamePath, field.Type.Base.Kind)
	assert.Equal(t, []string{"game", "Player"}, field.Type.Base.Path)
}

func TestParseConcreteScenarioOne(t *testing.T) {
	root, err := ParseString("t.poly", "table Player { id: u32 primary_key; name: string; }")
	require.NoError(t, err)
	require.Len(t, root.Defs, 1)
	tbl := root.Defs[0].Table
	require.Equal(t, "Player", tbl.Name)
	require.Len(t, tbl.Members, 2)

	id := tbl.Members[0].Field
	assert.Equal(t, ast.TypeU32, id.Type.Base.Basic)
	require.Len(t, id.Constraints, 1)
	assert.Equal(t, ast.ConstraintPrimaryKey, id.Constraints[0].Kind)
}

func TestParseForeignKeyWithAlias(t *testing.T) {
	src := `table Player { id: u32 primary_key; }
table Skill { player_id: u32 foreign_key(Player.id as skills); }`
	root, err := ParseString("t.poly", src)
	require.NoError(t, err)
	require.Len(t, root.Defs, 2)

	field := root.Defs[1].Table.Members[0].Field
	require.Len(t, field.Constraints, 1)
	c := field.Constraints[0]
	assert.Equal(t, ast.ConstraintForeignKey, c.Kind)
	assert.Equal(t, []string{"Player", "id"}, c.RefPath)
	assert.Equal(t, "skills", c.Alias)
}

func TestParseForeignKeyWithoutAlias(t *testing.T) {
	src := `table Skill { player_id: u32 foreign_key(Player.id); }`
	root, err := ParseString("t.poly", src)
	require.NoError(t, err)
	c := root.Defs[0].Table.Members[0].Field.Constraints[0]
	assert.Equal(t, "", c.Alias)
}

func TestParseAutoCreateAndAutoUpdate(t *testing.T) {
	for _, tc := range []struct {
		name     string
		src      string
		wantKind ast.ConstraintKind
		wantTZ   *ast.Timezone
	}{
		{
			name:     "bare auto_create",
			src:      "table T { created_at: timestamp auto_create; }",
			wantKind: ast.ConstraintAutoCreate,
			wantTZ:   nil,
		},
		{
			name:     "auto_create with Utc",
			src:      "table T { created_at: timestamp auto_create(Utc); }",
			wantKind: ast.ConstraintAutoCreate,
			wantTZ:   &ast.Timezone{Kind: ast.TimezoneUtc},
		},
		{
			name:     "auto_update with Local",
			src:      "table T { updated_at: timestamp auto_update(Local); }",
			wantKind: ast.ConstraintAutoUpdate,
			wantTZ:   &ast.Timezone{Kind: ast.TimezoneLocal},
		},
		{
			name:     "auto_update with Offset",
			src:      "table T { updated_at: timestamp auto_update(Offset(-5, 30)); }",
			wantKind: ast.ConstraintAutoUpdate,
			wantTZ:   &ast.Timezone{Kind: ast.TimezoneOffset, OffsetHours: -5, OffsetMinutes: 30},
		},
		{
			name:     "auto_create with Named",
			src:      `table T { created_at: timestamp auto_create(Named("America/New_York")); }`,
			wantKind: ast.ConstraintAutoCreate,
			wantTZ:   &ast.Timezone{Kind: ast.TimezoneNamed, Name: "America/New_York"},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			root, err := ParseString("t.poly", tc.src)
			require.NoError(t, err)
			c := root.Defs[0].Table.Members[0].Field.Constraints[0]
			require.Equal(t, tc.wantKind, c.Kind)
			assert.Equal(t, tc.wantTZ, c.Timezone)
		})
	}
}

func TestParseTableLevelCompositeIndexAnnotation(t *testing.T) {
	src := `@index(a, b)
table T { a: string; b: string; }`
	root, err := ParseString("t.poly", src)
	require.NoError(t, err)
	require.Len(t, root.Defs[0].Metadata.Annotations, 1)
	ann := root.Defs[0].Metadata.Annotations[0]
	assert.Equal(t, "index", ann.Name)
	require.Len(t, ann.Params, 2)
	assert.Equal(t, "a", ann.Params[0].Literal.Str)
	assert.Equal(t, "b", ann.Params[1].Literal.Str)
}

func TestParseUniqueIndexAnnotationName(t *testing.T) {
	src := `@unique_index(a, b)
table T { a: string; b: string; }`
	root, err := ParseString("t.poly", src)
	require.NoError(t, err)
	assert.Equal(t, "unique_index", root.Defs[0].Metadata.Annotations[0].Name)
}

func TestParsePreservesFieldOrder(t *testing.T) {
	src := `table Player {
	id: u32 primary_key;
	name: string;
	level: i32 default(1);
}`
	root, err := ParseString("t.poly", src)
	require.NoError(t, err)
	tbl := root.Defs[0].Table
	require.Len(t, tbl.Members, 3)
	assert.Equal(t, "id", tbl.Members[0].Field.Name)
	assert.Equal(t, "name", tbl.Members[1].Field.Name)
	assert.Equal(t, "level", tbl.Members[2].Field.Name)
}

func TestParseEnumExplicitAndImplicitValues(t *testing.T) {
	src := `enum Status { A, B = 5, C, D = 2, E }`
	root, err := ParseString("t.poly", src)
	require.NoError(t, err)
	en := root.Defs[0].Enum
	require.Len(t, en.Values, 5)
	for i, name := range []string{"A", "B", "C", "D", "E"} {
		assert.Equal(t, name, en.Values[i].Name)
	}
	require.Nil(t, en.Values[0].Value)
	require.NotNil(t, en.Values[1].Value)
	assert.Equal(t, int64(5), *en.Values[1].Value)
}

func TestParseRejectsReservedWordAsIdentifier(t *testing.T) {
	_, err := ParseString("t.poly", "table T { index: string; }")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParseMissingClosingBraceReturnsBuildError(t *testing.T) {
	_, err := ParseString("t.poly", "table T { id: u32;")
	require.Error(t, err)
	var berr *AstBuildError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, MissingElement, berr.Kind)
}
