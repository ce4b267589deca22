package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polygen/polygen/internal/ast"
	"github.com/polygen/polygen/internal/parser"
	"github.com/polygen/polygen/internal/validate"
)

func buildSchema(t *testing.T, src string) *SchemaContext {
	t.Helper()
	root, err := parser.ParseString("t.poly", src)
	require.NoError(t, err)
	idx, err := validate.Validate([]*ast.Root{root})
	require.NoError(t, err)
	ctx, err := Build([]*ast.Root{root}, idx)
	require.NoError(t, err)
	return ctx
}

func findStruct(ctx *SchemaContext, fqn string) *StructItem {
	for _, file := range ctx.Files {
		for _, ns := range file.Namespaces {
			for _, item := range ns.Items {
				if item.Kind == ItemStruct && item.Struct.FQN == fqn {
					return item.Struct
				}
			}
		}
	}
	return nil
}

func TestBuildConcreteScenarioOnePrimaryKeyIndex(t *testing.T) {
	ctx := buildSchema(t, "table Player { id: u32 primary_key; name: string; }")
	player := findStruct(ctx, "Player")
	require.NotNil(t, player)
	require.Len(t, player.Indexes, 1)
	idx := player.Indexes[0]
	assert.Equal(t, "Player_id", idx.Name)
	assert.True(t, idx.IsUnique)
	assert.Equal(t, "field", idx.Source)
	require.Len(t, idx.Fields, 1)
	assert.Equal(t, "id", idx.Fields[0].Name)
}

func TestBuildEnumNumbering(t *testing.T) {
	ctx := buildSchema(t, "enum Status { A, B = 5, C, D = 2, E }")
	var status *EnumItem
	for _, file := range ctx.Files {
		for _, ns := range file.Namespaces {
			for _, item := range ns.Items {
				if item.Kind == ItemEnum {
					status = item.Enum
				}
			}
		}
	}
	require.NotNil(t, status)
	require.Len(t, status.Values, 5)
	want := []int64{0, 5, 6, 2, 3}
	for i, v := range status.Values {
		assert.Equal(t, want[i], v.Value, "value %d (%s)", i, v.Name)
	}
}

func TestBuildForeignKeyMaterializesBothSides(t *testing.T) {
	ctx := buildSchema(t, `
table Player { id: u32 primary_key; }
table Skill { player_id: u32 foreign_key(Player.id as skills); }`)

	skill := findStruct(ctx, "Skill")
	require.NotNil(t, skill)
	require.Len(t, skill.Fields, 1)
	fk := skill.Fields[0].ForeignKey
	require.NotNil(t, fk)
	assert.Equal(t, "Player", fk.TargetTableFQN)
	assert.Equal(t, "id", fk.TargetField)
	assert.Equal(t, "skills", fk.Alias)

	player := findStruct(ctx, "Player")
	require.NotNil(t, player)
	require.Len(t, player.Relations, 1)
	rel := player.Relations[0]
	assert.Equal(t, "skills", rel.Name)
	assert.Equal(t, "Skill", rel.SourceTableFQN)
	assert.Equal(t, "Skill", rel.SourceTableName)
	assert.Equal(t, "player_id", rel.SourceField)
}

func TestBuildForeignKeyWithoutAliasDefaultsRelationName(t *testing.T) {
	ctx := buildSchema(t, `
table Player { id: u32 primary_key; }
table Skill { player_id: u32 foreign_key(Player.id); }`)

	player := findStruct(ctx, "Player")
	require.Len(t, player.Relations, 1)
	assert.Equal(t, "skills", player.Relations[0].Name)
}

func TestBuildCompositeTableLevelIndex(t *testing.T) {
	ctx := buildSchema(t, `
@unique_index(a, b)
table Pair { a: string; b: string; }`)

	pair := findStruct(ctx, "Pair")
	require.NotNil(t, pair)
	require.Len(t, pair.Indexes, 1)
	idx := pair.Indexes[0]
	assert.Equal(t, "Pair_a_b", idx.Name)
	assert.True(t, idx.IsUnique)
	assert.Equal(t, "table", idx.Source)
	require.Len(t, idx.Fields, 2)
	assert.Equal(t, "a", idx.Fields[0].Name)
	assert.Equal(t, "b", idx.Fields[1].Name)
}

func TestBuildAutoCreateAutoUpdateTimezone(t *testing.T) {
	ctx := buildSchema(t, `table Player {
	created_at: timestamp auto_create(Offset(-5, 30));
	updated_at: timestamp auto_update;
}`)
	player := findStruct(ctx, "Player")
	require.NotNil(t, player)
	require.Len(t, player.Fields, 2)

	created := player.Fields[0]
	require.NotNil(t, created.AutoCreate)
	assert.Equal(t, "Offset", created.AutoCreate.Kind)
	assert.Equal(t, int64(-5), created.AutoCreate.OffsetHours)
	assert.Equal(t, int64(30), created.AutoCreate.OffsetMinutes)

	updated := player.Fields[1]
	require.NotNil(t, updated.AutoUpdate)
	assert.Equal(t, "Utc", updated.AutoUpdate.Kind)
}

func TestBuildPrimitiveTypeRef(t *testing.T) {
	ctx := buildSchema(t, "table T { n: u64; }")
	tbl := findStruct(ctx, "T")
	require.Len(t, tbl.Fields, 1)
	tr := tbl.Fields[0].Type
	assert.True(t, tr.IsPrimitive)
	assert.Equal(t, "u64", tr.Primitive)
}
