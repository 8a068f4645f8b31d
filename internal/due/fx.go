package due

import (
	"github.com/smallbiznis/campusbooks/internal/due/repository"
	"github.com/smallbiznis/campusbooks/internal/due/service"
	"go.uber.org/fx"
)

var Module = fx.Module("due.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
