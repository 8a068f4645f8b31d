package feestructure

import (
	"github.com/smallbiznis/campusbooks/internal/feestructure/repository"
	"github.com/smallbiznis/campusbooks/internal/feestructure/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feestructure.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
