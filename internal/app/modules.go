package app

import (
	"wabridge/internal/core"
	"wabridge/internal/infrastructure"
	"wabridge/internal/infrastructure/config"
	"wabridge/internal/presentation"

	"go.uber.org/fx"
)

// Module aggregates all application modules for easy import
var Module = fx.Options(
	config.Module,
	infrastructure.Module,
	core.Module,
	presentation.Module,
)
