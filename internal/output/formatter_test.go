package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polygen/polygen/internal/introspect"
	"github.com/polygen/polygen/internal/migrate"
)

func TestNewFormatterDefaultsToSQL(t *testing.T) {
	f, err := NewFormatter("")
	require.NoError(t, err)
	assert.IsType(t, sqlFormatter{}, f)
}

func TestNewFormatterKnownFormats(t *testing.T) {
	for name, want := range map[string]Formatter{
		"sql":     sqlFormatter{},
		"SQL":     sqlFormatter{},
		"json":    jsonFormatter{},
		"summary": summaryFormatter{},
	} {
		f, err := NewFormatter(name)
		require.NoError(t, err)
		assert.IsType(t, want, f)
	}
}

func TestNewFormatterUnknown(t *testing.T) {
	_, err := NewFormatter("xml")
	require.Error(t, err)
}

func sampleDiff() *migrate.SchemaDiff {
	return &migrate.SchemaDiff{
		AddedTables: []*introspect.DbTable{{Name: "users", Columns: []introspect.DbColumn{{Name: "id", DBType: "BIGINT", IsPrimaryKey: true}}}},
		ModifiedTables: []*migrate.TableDiff{{
			Name:          "posts",
			AddedColumns:  []*introspect.DbColumn{{Name: "slug", DBType: "TEXT"}},
			AddedIndexes:  []*introspect.DbIndex{{Name: "idx_posts_slug", Columns: []string{"slug"}}},
		}},
	}
}

func samplePlan() *migrate.Migration {
	return migrate.Plan(sampleDiff())
}

func TestSQLFormatterFormatMigration(t *testing.T) {
	out, err := sqlFormatter{}.FormatMigration(samplePlan())
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE `users`")
	assert.Contains(t, out, "ALTER TABLE `posts` ADD COLUMN `slug` TEXT NOT NULL;")
}

func TestSQLFormatterFormatMigrationNil(t *testing.T) {
	out, err := sqlFormatter{}.FormatMigration(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestJSONFormatterFormatMigration(t *testing.T) {
	out, err := jsonFormatter{}.FormatMigration(samplePlan())
	require.NoError(t, err)
	assert.Contains(t, out, `"format": "json"`)
	assert.Contains(t, out, `"sql"`)
}

func TestSummaryFormatterFormatDiff(t *testing.T) {
	out, err := summaryFormatter{}.FormatDiff(sampleDiff())
	require.NoError(t, err)
	assert.Contains(t, out, "Tables:   +1, ~1, -0")
	assert.Contains(t, out, "users (new table)")
	assert.Contains(t, out, "posts (+1 cols, +1 idx)")
}

func TestSummaryFormatterFormatDiffNil(t *testing.T) {
	out, err := summaryFormatter{}.FormatDiff(nil)
	require.NoError(t, err)
	assert.Equal(t, "No changes detected.\n", out)
}

func TestFormatRollbackSQL(t *testing.T) {
	out := FormatRollbackSQL(samplePlan())
	assert.Contains(t, out, "polygen rollback")
	assert.Contains(t, out, "DROP TABLE `users`;")
}
