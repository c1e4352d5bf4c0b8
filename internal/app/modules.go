package app

import (
	"github.com/vk/bogflow/internal/registry"
	"github.com/vk/bogflow/modules/core"
	"github.com/vk/bogflow/modules/env_vars"
	"github.com/vk/bogflow/modules/example"
	"github.com/vk/bogflow/modules/print"
)

// CoreModules is the definitive list of all modules that are compiled into
// the bogflow binary.
func CoreModules() []registry.Module {
	return []registry.Module{
		&core.Module{},
		&example.Module{},
		&print.Module{},
		&env_vars.Module{},
	}
}
