package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polygen/polygen/internal/config"
	"github.com/polygen/polygen/internal/ir"
	"github.com/polygen/polygen/internal/langconfig"
	"github.com/polygen/polygen/internal/linker"
	"github.com/polygen/polygen/internal/symboltable"
	"github.com/polygen/polygen/internal/template"
	"github.com/polygen/polygen/internal/validate"
)

func generateCmd(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render target-language source from a .poly schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(logger)
		},
	}
	config.BindString(cmd, "schema-path", "", "entry .poly file to link")
	config.BindString(cmd, "lang", "", "target language driver name")
	config.BindString(cmd, "output-dir", "", "directory generated files are written to")
	config.BindString(cmd, "templates-dir", "templates", "directory holding language driver configs and .ptpl templates")
	_ = cmd.MarkFlagRequired("schema-path")
	_ = cmd.MarkFlagRequired("lang")
	_ = cmd.MarkFlagRequired("output-dir")
	return cmd
}

func runGenerate(logger *zap.Logger) error {
	schemaPath := config.String("schema-path")
	lang := config.String("lang")
	outputDir := config.String("output-dir")
	templatesDir := config.String("templates-dir")

	logger.Info("linking schema", zap.String("entry", schemaPath))
	roots, err := linker.Link(schemaPath)
	if err != nil {
		return fmt.Errorf("link: %w", err)
	}

	idx, err := validate.Validate(roots)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	_ = symboltable.Build(roots, idx)

	ctx, err := ir.Build(roots, idx)
	if err != nil {
		return fmt.Errorf("build ir: %w", err)
	}

	cfg, err := langconfig.Load(templatesDir, lang)
	if err != nil {
		return fmt.Errorf("load language driver %q: %w", lang, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	loader := template.NewFSLoader(templatesDir)
	renderer := template.NewRenderer(loader)

	mainNodes, err := loader.Load(cfg.Templates.Main)
	if err != nil {
		return fmt.Errorf("load main template %q: %w", cfg.Templates.Main, err)
	}

	structCount := 0
	for _, file := range ctx.Files {
		for _, ns := range file.Namespaces {
			for _, item := range ns.Items {
				if item.Kind != ir.ItemStruct {
					continue
				}
				structCount++
				scope := template.NewScope(map[string]any{
					"schema":     ctx,
					"langconfig": cfg,
					"struct":     item.Struct,
					"namespace":  ns,
				})
				out, _, err := renderer.Render(cfg.Templates.Main, mainNodes, scope)
				if err != nil {
					return fmt.Errorf("render %s: %w", item.Struct.FQN, err)
				}
				destName := item.Struct.Name + "." + cfg.Extension
				if err := writeGenerated(outputDir, destName, out); err != nil {
					return err
				}
			}
		}
	}
	logger.Info("rendered structs", zap.Int("count", structCount))

	for _, extra := range cfg.Templates.Extra {
		nodes, err := loader.Load(extra)
		if err != nil {
			return fmt.Errorf("load extra template %q: %w", extra, err)
		}
		scope := template.NewScope(map[string]any{"schema": ctx, "langconfig": cfg})
		out, _, err := renderer.Render(extra, nodes, scope)
		if err != nil {
			return fmt.Errorf("render extra template %q: %w", extra, err)
		}
		destName := filepath.Base(extra)
		destName = destName[:len(destName)-len(filepath.Ext(destName))] + "." + cfg.Extension
		if err := writeGenerated(outputDir, destName, out); err != nil {
			return err
		}
	}

	for src, dest := range cfg.StaticFiles {
		if err := copyStaticFile(templatesDir, src, outputDir, dest); err != nil {
			return fmt.Errorf("copy static file %q: %w", src, err)
		}
	}

	logger.Info("generation complete", zap.String("output_dir", outputDir))
	return nil
}

func writeGenerated(outputDir, name, contents string) error {
	dest := filepath.Join(outputDir, name)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(contents), 0o644)
}

func copyStaticFile(templatesDir, src, outputDir, dest string) error {
	in, err := os.Open(filepath.Join(templatesDir, src))
	if err != nil {
		return err
	}
	defer in.Close()

	destPath := filepath.Join(outputDir, dest)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
