package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/tyler-sommer/stick"

	"parsegen/internal/dataset"
	"parsegen/internal/logging"
	"parsegen/internal/target"
)

//go:embed templates/*.twig
var embeddedTemplates embed.FS

const contractTemplate = "contract"

// genericFailure stands in when a caller hands REPAIR no feedback.
const genericFailure = "The previous attempt failed without a diagnostic"

// Request carries everything a prompt may draw on.
type Request struct {
	Target       target.Target
	Summary      dataset.Summary
	Reference    *dataset.Table
	PriorFailure string
	AttemptIndex int
}

// Prompt is a rendered prompt and the strategy that produced it.
type Prompt struct {
	Strategy Strategy
	Text     string
}

// Builder renders prompts with a stick environment.
type Builder struct {
	env       *stick.Env
	templates map[string]string
}

// Option configures a Builder.
type Option func(*Builder) error

// WithFS loads every *.twig file under dir, keyed by base name. Later
// options override earlier ones, so a caller can replace single templates.
func WithFS(fsys fs.FS, dir string) Option {
	return func(b *Builder) error {
		return fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(p, ".twig") {
				return nil
			}
			content, err := fs.ReadFile(fsys, p)
			if err != nil {
				return fmt.Errorf("read %s: %w", p, err)
			}
			b.templates[strings.TrimSuffix(path.Base(p), ".twig")] = string(content)
			return nil
		})
	}
}

// WithTemplate sets one template from a string.
func WithTemplate(name, tpl string) Option {
	return func(b *Builder) error {
		b.templates[name] = tpl
		return nil
	}
}

// NewBuilder returns a builder loaded with the embedded templates, then
// applies opts.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		env:       stick.New(nil),
		templates: make(map[string]string),
	}
	opts = append([]Option{WithFS(embeddedTemplates, "templates")}, opts...)
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	for _, name := range []string{contractTemplate, Detailed.template(), Repair.template(), Fallback.template()} {
		if _, ok := b.templates[name]; !ok {
			return nil, fmt.Errorf("template %q not found", name)
		}
	}
	return b, nil
}

// Build renders the prompt for req.AttemptIndex.
func (b *Builder) Build(req Request) (Prompt, error) {
	strategy := SelectStrategy(req.AttemptIndex)

	vars := map[string]stick.Value{
		"target":  req.Target.ID,
		"package": req.Target.UnitName,
		"summary": req.Summary.String(),
	}
	contract, err := b.render(contractTemplate, vars)
	if err != nil {
		return Prompt{}, err
	}
	vars["contract"] = strings.TrimSpace(contract)

	switch strategy {
	case Repair:
		feedback := strings.TrimSpace(req.PriorFailure)
		if feedback == "" {
			feedback = genericFailure
		}
		vars["prior_failure"] = feedback
	case Fallback:
		if req.Reference == nil {
			return Prompt{}, fmt.Errorf("%s prompt needs the reference table", strategy)
		}
		vars["data"] = req.Reference.Render()
		vars["types"] = req.Reference.TypeMap()
	}

	text, err := b.render(strategy.template(), vars)
	if err != nil {
		return Prompt{}, err
	}
	logging.PromptDebug("Built %s prompt for %s (%d bytes)", strategy, req.Target.ID, len(text))
	return Prompt{Strategy: strategy, Text: text}, nil
}

func (b *Builder) render(name string, vars map[string]stick.Value) (string, error) {
	var out strings.Builder
	if err := b.env.Execute(b.templates[name], &out, vars); err != nil {
		return "", fmt.Errorf("execute %q: %w", name, err)
	}
	return out.String(), nil
}
