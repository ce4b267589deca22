package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polygen/polygen/internal/config"
	"github.com/polygen/polygen/internal/introspect"
	_ "github.com/polygen/polygen/internal/introspect/mysql"
	_ "github.com/polygen/polygen/internal/introspect/sqlite"
	"github.com/polygen/polygen/internal/ir"
	"github.com/polygen/polygen/internal/linker"
	"github.com/polygen/polygen/internal/migrate"
	baselinemysql "github.com/polygen/polygen/internal/migrate/baseline/mysql"
	"github.com/polygen/polygen/internal/output"
	"github.com/polygen/polygen/internal/validate"
)

func migrateCmd(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Diff a .poly schema against a live database or SQL dump and plan a migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(logger)
		},
	}
	config.BindString(cmd, "schema-path", "", "entry .poly file to link")
	config.BindString(cmd, "output-dir", "", "directory the migration plan is written to")
	config.BindString(cmd, "baseline", "", "path to a SQL dump to diff against, instead of --db")
	config.BindString(cmd, "db", "", "DSN of a live database to diff against, instead of --baseline")
	config.BindString(cmd, "dialect", string(introspect.DialectSQLite), "dialect of --db (mysql|sqlite)")
	config.BindString(cmd, "format", "sql", "migration plan format: sql|json|summary")
	_ = cmd.MarkFlagRequired("schema-path")
	_ = cmd.MarkFlagRequired("output-dir")
	return cmd
}

func runMigrate(logger *zap.Logger) error {
	schemaPath := config.String("schema-path")
	outputDir := config.String("output-dir")
	baseline := config.String("baseline")
	dsn := config.String("db")
	dialect := config.String("dialect")

	if (baseline == "") == (dsn == "") {
		return fmt.Errorf("migrate: exactly one of --baseline or --db must be set")
	}

	roots, err := linker.Link(schemaPath)
	if err != nil {
		return fmt.Errorf("link: %w", err)
	}
	idx, err := validate.Validate(roots)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	schemaCtx, err := ir.Build(roots, idx)
	if err != nil {
		return fmt.Errorf("build ir: %w", err)
	}
	expected := migrate.ExpectedSchema(schemaCtx)

	var actual *introspect.DbSchema
	if baseline != "" {
		logger.Info("parsing baseline dump", zap.String("path", baseline))
		raw, err := os.ReadFile(baseline)
		if err != nil {
			return fmt.Errorf("read baseline: %w", err)
		}
		actual, err = baselinemysql.NewParser().Parse(string(raw))
		if err != nil {
			return fmt.Errorf("parse baseline: %w", err)
		}
	} else {
		logger.Info("introspecting live database", zap.String("dialect", dialect))
		introspecter, err := introspect.New(introspect.Dialect(dialect))
		if err != nil {
			return fmt.Errorf("introspect: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		actual, err = introspecter.Introspect(ctx, dsn)
		if err != nil {
			return fmt.Errorf("introspect: %w", err)
		}
	}

	diff := migrate.Diff(actual, expected)
	if diff.IsEmpty() {
		logger.Info("schema already up to date")
		return nil
	}

	plan := migrate.Plan(diff)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	formatName := config.String("format")
	formatter, err := output.NewFormatter(formatName)
	if err != nil {
		return err
	}
	rendered, err := formatter.FormatMigration(plan)
	if err != nil {
		return fmt.Errorf("format migration plan: %w", err)
	}

	ext := map[output.Format]string{output.FormatJSON: "json", output.FormatSummary: "txt"}[output.Format(formatName)]
	if ext == "" {
		ext = "sql"
	}

	dest := filepath.Join(outputDir, "migration."+ext)
	if err := os.WriteFile(dest, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write migration plan: %w", err)
	}
	logger.Info("migration plan written", zap.String("path", dest), zap.Int("statements", len(plan.SQLStatements())))
	return nil
}
