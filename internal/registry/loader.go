package registry

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conduitcms/composer/internal/types"
)

// DefinitionSuffix is the file name suffix of block definition files.
const DefinitionSuffix = ".block.yaml"

// definitionFile is the YAML shape of one block definition file.
type definitionFile struct {
	Type     string            `yaml:"type"`
	Name     string            `yaml:"name"`
	Fields   types.FieldSchema `yaml:"fields"`
	Template string            `yaml:"template"`
}

// LoadDefinitionFile parses one YAML block definition and compiles its
// render template. The template receives the properties bag as its data.
func LoadDefinitionFile(path string) (*BlockDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading block definition %s: %w", path, err)
	}

	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing block definition %s: %w", path, err)
	}

	if file.Type == "" {
		return nil, fmt.Errorf("block definition %s: missing type", path)
	}
	if file.Name == "" {
		file.Name = file.Type
	}

	render, err := compileTemplate(file.Type, file.Template)
	if err != nil {
		return nil, fmt.Errorf("block definition %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat block definition %s: %w", path, err)
	}

	return &BlockDefinition{
		Type:    file.Type,
		Name:    file.Name,
		Schema:  file.Fields,
		Render:  render,
		Source:  path,
		LastMod: info.ModTime(),
	}, nil
}

// compileTemplate builds a RenderFunc from an html/template body. An empty
// template renders a minimal labeled container so a definition without
// markup still previews.
func compileTemplate(blockType, body string) (RenderFunc, error) {
	if strings.TrimSpace(body) == "" {
		body = fmt.Sprintf(`<div class="block block-%s"></div>`, template.HTMLEscapeString(blockType))
	}

	tmpl, err := template.New(blockType).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("compiling template: %w", err)
	}

	return func(ctx context.Context, props map[string]any) (string, error) {
		var buf strings.Builder
		if err := tmpl.Execute(&buf, props); err != nil {
			return "", fmt.Errorf("rendering block %s: %w", blockType, err)
		}
		return buf.String(), nil
	}, nil
}

// LoadDirectory loads every *.block.yaml under dir into the registry,
// returning the number of definitions loaded. Individual bad files are
// skipped with an error appended so one broken definition never blocks the
// rest.
func LoadDirectory(reg *BlockRegistry, dir string) (int, []error) {
	var errs []error
	loaded := 0

	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, DefinitionSuffix) {
			return nil
		}

		def, err := LoadDefinitionFile(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		reg.Register(def)
		loaded++
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	return loaded, errs
}
