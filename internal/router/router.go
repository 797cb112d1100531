package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/fastygo/taskhub/api/handler"
	"github.com/fastygo/taskhub/internal/middleware"
)

type Handlers struct {
	Task    *apiHandler.TaskHandler
	Mention *apiHandler.MentionHandler
	Job     *apiHandler.JobHandler
	Health  *apiHandler.HealthHandler
}

func New(handlers Handlers, auth middleware.Middleware) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	api := r.Group("/api/v1")

	api.GET("/tasks", auth(handlers.Task.ListTasks))
	api.POST("/tasks", auth(handlers.Task.CreateTask))
	api.GET("/tasks/{id}", auth(handlers.Task.GetTask))
	api.PATCH("/tasks/{id}", auth(handlers.Task.UpdateTask))
	api.DELETE("/tasks/{id}", auth(handlers.Task.DeleteTask))
	api.POST("/tasks/{id}/complete", auth(handlers.Task.CompleteTask))

	api.POST("/sync/{source}", auth(handlers.Task.Sync))
	api.POST("/mentions", auth(handlers.Mention.Ingest))

	api.GET("/jobs", auth(handlers.Job.ListJobs))
	api.POST("/jobs/{name}/trigger", auth(handlers.Job.Trigger))
	api.GET("/jobs/{name}/runs", auth(handlers.Job.Runs))

	return r
}
