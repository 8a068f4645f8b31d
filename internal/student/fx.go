package student

import (
	"github.com/smallbiznis/campusbooks/internal/student/repository"
	"github.com/smallbiznis/campusbooks/internal/student/service"
	"go.uber.org/fx"
)

var Module = fx.Module("student.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
