// Package example provides small services for trying chains out: nop, sleep
// and getusername.
package example

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"time"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/ctxlog"
	"github.com/vk/bogflow/internal/registry"
)

//go:embed manifest.hcl
var manifests embed.FS

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunNop does nothing.
func OnRunNop(ctx context.Context, in bog.Bag) ([]any, error) {
	return nil, nil
}

// OnRunSleep sleeps for the number of seconds given as `sleep`, if any.
func OnRunSleep(ctx context.Context, in bog.Bag) ([]any, error) {
	raw, _ := in.Get("sleep")
	var d time.Duration
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int64:
		d = time.Duration(v) * time.Second
	case float64:
		d = time.Duration(v * float64(time.Second))
	default:
		return nil, fmt.Errorf("sleep must be a number of seconds, got %T", raw)
	}

	ctxlog.FromContext(ctx).Debug("Sleeping.", "duration", d)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OnRunGetUsername returns the name of the user running the process.
func OnRunGetUsername(ctx context.Context, in bog.Bag) ([]any, error) {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return []any{u.Username}, nil
	}
	if name := os.Getenv("USER"); name != "" {
		return []any{name}, nil
	}
	return nil, fmt.Errorf("cannot determine the current user")
}

// Register registers the handlers with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunNop", OnRunNop)
	r.RegisterHandler("OnRunSleep", OnRunSleep)
	r.RegisterHandler("OnRunGetUsername", OnRunGetUsername)
}

// Manifests returns the embedded service manifests.
func (m *Module) Manifests() fs.FS { return manifests }
