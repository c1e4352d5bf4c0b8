package config

import (
	"context"
	"io/fs"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths (files or directories)
	// and translates it into the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
	// LoadFS reads configuration embedded in fsys. origin prefixes the
	// file names recorded as sources.
	LoadFS(ctx context.Context, fsys fs.FS, origin string) (*Model, error)
}
