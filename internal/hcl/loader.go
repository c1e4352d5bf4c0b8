package hcl

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/bogflow/internal/config"
	"github.com/vk/bogflow/internal/ctxlog"
	"github.com/vk/bogflow/internal/fsutil"
	"github.com/vk/bogflow/internal/schema"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Extension is the file extension the loader picks up from directories.
const Extension = ".hcl"

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	evalCtx *hcl.EvalContext
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a loader whose expressions see the current process
// environment as `env`.
func NewLoader() *Loader {
	return NewLoaderWithEnv(os.Environ())
}

// NewLoaderWithEnv creates a loader whose `env` variable is built from
// environ, given as "KEY=value" pairs.
func NewLoaderWithEnv(environ []string) *Loader {
	env := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	return &Loader{evalCtx: &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(env)},
		Functions: map[string]function.Function{
			"upper":      stdlib.UpperFunc,
			"lower":      stdlib.LowerFunc,
			"trimspace":  stdlib.TrimSpaceFunc,
			"format":     stdlib.FormatFunc,
			"join":       stdlib.JoinFunc,
			"concat":     stdlib.ConcatFunc,
			"jsonencode": stdlib.JSONEncodeFunc,
		},
	}}
}

// Load parses every .hcl file under paths, in order, and translates the
// result into one model. Paths that do not exist are skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()
	for _, file := range files {
		m, err := l.loadFile(ctx, parser, file)
		if err != nil {
			return nil, err
		}
		model.Services = append(model.Services, m.Services...)
		for _, w := range m.Workflows {
			if prev, dup := model.Workflow(w.Name); dup {
				return nil, fmt.Errorf("workflow '%s' in %s is already defined in %s", w.Name, w.Source, prev.Source)
			}
			model.Workflows = append(model.Workflows, w)
		}
	}

	logger.Debug("HCL loading complete.", "services", len(model.Services), "workflows", len(model.Workflows))
	return model, nil
}

// LoadFS parses every .hcl file in fsys, such as the manifests a module
// embeds. Sources are reported as origin joined with the file's path.
func (l *Loader) LoadFS(ctx context.Context, fsys fs.FS, origin string) (*config.Model, error) {
	var names []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, Extension) {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", origin, err)
	}

	model := &config.Model{}
	parser := hclparse.NewParser()
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		source := path.Join(origin, name)
		hclFile, diags := parser.ParseHCL(data, source)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", source, diags)
		}
		m, err := l.translateFile(ctx, hclFile, source)
		if err != nil {
			return nil, err
		}
		model.Merge(m)
	}
	return model, nil
}

func (l *Loader) loadFile(ctx context.Context, parser *hclparse.Parser, file string) (*config.Model, error) {
	hclFile, diags := parser.ParseHCLFile(file)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
	}
	return l.translateFile(ctx, hclFile, file)
}

func (l *Loader) translateFile(ctx context.Context, hclFile *hcl.File, file string) (*config.Model, error) {
	var root schema.File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}

	model := &config.Model{}
	for _, s := range root.Services {
		def, err := translateService(ctx, s, file)
		if err != nil {
			return nil, err
		}
		model.Services = append(model.Services, def)
	}
	for _, w := range root.Workflows {
		wf, err := l.translateWorkflow(w.Name, w.Inject, w.Steps, file)
		if err != nil {
			return nil, err
		}
		model.Workflows = append(model.Workflows, wf)
	}
	if root.Inject != nil || len(root.Steps) > 0 {
		name := strings.TrimSuffix(filepath.Base(file), Extension)
		wf, err := l.translateWorkflow(name, root.Inject, root.Steps, file)
		if err != nil {
			return nil, err
		}
		model.Workflows = append(model.Workflows, wf)
	}

	ctxlog.FromContext(ctx).Debug("Loaded HCL file.", "file", file, "services", len(model.Services), "workflows", len(model.Workflows))
	return model, nil
}
