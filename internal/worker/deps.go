package worker

import (
	"captionstudio/internal/pkg/logger"
	"captionstudio/internal/queue"
	"captionstudio/internal/render"
	"captionstudio/internal/repositories"
)

type Deps struct {
	Sessions *repositories.SessionRepository
	Queue    *queue.RedisQueue
	Render   render.Config
	Provider render.Provider
	Log      *logger.Logger
}
