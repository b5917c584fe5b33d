// Package templates maps language tags to the starter files and dependency
// manifest a new project is created with.
package templates

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/domain"
)

//go:embed templates.yaml
var manifestYAML []byte

// supported is the fixed set of language tags, in the order they are reported.
var supported = []string{
	domain.LangPython,
	domain.LangWebstack,
	domain.LangNode,
	domain.LangReact,
	domain.LangReactNative,
	domain.LangHTML,
	domain.LangCSS,
	domain.LangJS,
}

type manifest struct {
	Templates map[string]template `yaml:"templates"`
}

type template struct {
	Files        []templateFile    `yaml:"files"`
	Dependencies map[string]string `yaml:"dependencies"`
}

type templateFile struct {
	FilePath string `yaml:"filePath"`
	Code     string `yaml:"code"`
}

// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	templates map[string]template
}

// New parses the embedded manifest.
func New() (*Registry, error) {
	return Parse(manifestYAML)
}

// Parse builds a registry from a YAML manifest. Every supported tag must be
// present and no unknown tag is accepted.
func Parse(data []byte) (*Registry, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse template manifest: %w", err)
	}

	for _, lang := range supported {
		if _, ok := m.Templates[lang]; !ok {
			return nil, fmt.Errorf("template manifest: missing language %q", lang)
		}
	}
	for lang, t := range m.Templates {
		if !isSupported(lang) {
			return nil, fmt.Errorf("template manifest: unknown language %q", lang)
		}
		seen := make(map[string]bool, len(t.Files))
		for _, f := range t.Files {
			if strings.TrimSpace(f.FilePath) == "" {
				return nil, fmt.Errorf("template manifest: %s has a file without a path", lang)
			}
			if seen[f.FilePath] {
				return nil, fmt.Errorf("template manifest: %s declares %s twice", lang, f.FilePath)
			}
			seen[f.FilePath] = true
		}
	}

	return &Registry{templates: m.Templates}, nil
}

// Supported lists the accepted language tags.
func (r *Registry) Supported() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// Instantiate returns fresh copies of the starter files and dependencies for lang.
// Dependencies is never nil.
func (r *Registry) Instantiate(lang string) ([]domain.File, map[string]string, error) {
	t, ok := r.templates[lang]
	if !ok {
		return nil, nil, domain.Validation("lang",
			"Unsupported language '%s'. Supported options are: %s.", lang, quoteAll(supported))
	}

	files := make([]domain.File, 0, len(t.Files))
	for _, f := range t.Files {
		files = append(files, domain.File{FilePath: f.FilePath, Code: f.Code})
	}

	deps := make(map[string]string, len(t.Dependencies))
	for k, v := range t.Dependencies {
		deps[k] = v
	}

	return files, deps, nil
}

func isSupported(lang string) bool {
	for _, s := range supported {
		if s == lang {
			return true
		}
	}
	return false
}

func quoteAll(tags []string) string {
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = "'" + t + "'"
	}
	return strings.Join(quoted, ", ")
}
