package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polygen/polygen/internal/ast"
	"github.com/polygen/polygen/internal/parser"
)

func mustParse(t *testing.T, file, src string) *ast.Root {
	t.Helper()
	root, err := parser.ParseString(file, src)
	require.NoError(t, err)
	return root
}

func TestValidateDuplicateDefinition(t *testing.T) {
	root := mustParse(t, "dup.poly", "table Player { id: u32; } table Player { id: u32; }")
	_, err := Validate([]*ast.Root{root})
	require.Error(t, err)
	var dup *DuplicateDefinitionError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "Player", dup.FQN)
}

func TestValidateWalkUpScopeResolution(t *testing.T) {
	root := mustParse(t, "ns.poly", `
namespace game {
	enum Status { Active, Inactive }
	table Player { status: Status; }
}`)
	idx, err := Validate([]*ast.Root{root})
	require.NoError(t, err)
	_, ok := idx.Defs["game.Status"]
	assert.True(t, ok)
	_, ok = idx.Defs["game.Player"]
	assert.True(t, ok)
}

func TestResolveWalksUpNamespacePrefixes(t *testing.T) {
	idx := &Index{Defs: map[string]*DefEntry{
		"game.common.Status": {FQN: "game.common.Status"},
	}}
	for _, tc := range []struct {
		name      string
		namespace string
		path      []string
		wantFQN   string
		wantOK    bool
	}{
		{"exact scope match", "game.common", []string{"Status"}, "game.common.Status", true},
		{"one level up", "game.common.inner", []string{"Status"}, "game.common.Status", true},
		{"qualified from sibling scope", "game.other", []string{"common", "Status"}, "game.common.Status", true},
		{"fully qualified from global", "", []string{"game", "common", "Status"}, "game.common.Status", true},
		{"not found", "game.common", []string{"Nope"}, "", false},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			fqn, ok := idx.Resolve(tc.namespace, tc.path)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantFQN, fqn)
		})
	}
}

func TestValidateUnresolvedTypeReference(t *testing.T) {
	root := mustParse(t, "bad.poly", "table Player { owner: Nonexistent; }")
	_, err := Validate([]*ast.Root{root})
	require.Error(t, err)
	var notFound *TypeNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"Nonexistent"}, notFound.Path)
}

func TestValidateForeignKeyFieldPathResolvesTargetTable(t *testing.T) {
	root := mustParse(t, "fk.poly", `
table Player { id: u32 primary_key; }
table Skill { player_id: u32 foreign_key(Player.id as skills); }`)
	_, err := Validate([]*ast.Root{root})
	require.NoError(t, err)
}

func TestValidateForeignKeyUnresolvedTableStillErrors(t *testing.T) {
	root := mustParse(t, "fk.poly", "table Skill { player_id: u32 foreign_key(Ghost.id); }")
	_, err := Validate([]*ast.Root{root})
	require.Error(t, err)
	var notFound *TypeNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestSplitForeignKeyPath(t *testing.T) {
	for _, tc := range []struct {
		name          string
		path          []string
		wantTablePath []string
		wantField     string
	}{
		{"table and field", []string{"Player", "id"}, []string{"Player"}, "id"},
		{"namespaced table and field", []string{"game", "Player", "id"}, []string{"game", "Player"}, "id"},
		{"bare table defaults field to id", []string{"Player"}, []string{"Player"}, "id"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tablePath, field := splitForeignKeyPath(tc.path)
			assert.Equal(t, tc.wantTablePath, tablePath)
			assert.Equal(t, tc.wantField, field)
		})
	}
}
