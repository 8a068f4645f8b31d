package exam

import (
	"github.com/smallbiznis/campusbooks/internal/exam/repository"
	"github.com/smallbiznis/campusbooks/internal/exam/service"
	"go.uber.org/fx"
)

var Module = fx.Module("exam.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
