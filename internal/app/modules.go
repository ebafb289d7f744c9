package app

import (
	"github.com/vk/graphunit/internal/registry"
	"github.com/vk/graphunit/modules/activation"
	"github.com/vk/graphunit/modules/linear"
	"github.com/vk/graphunit/modules/sequential"
)

// coreModules is the definitive list of all kinds that are compiled into
// the graphunit binary.
var coreModules = []registry.Module{
	&linear.Module{},
	&activation.Module{},
	&sequential.Module{},
}
