package collection

import (
	"github.com/smallbiznis/campusbooks/internal/collection/repository"
	"github.com/smallbiznis/campusbooks/internal/collection/service"
	"go.uber.org/fx"
)

var Module = fx.Module("collection.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
