package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, deps *dependencies, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(deps.metrics))

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.readiness)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Signed export links carry their own credential.
	api.GET("/schedule/exports/download", deps.exports.Download)

	authn, writer := internalmiddleware.Passthrough(), internalmiddleware.Passthrough()
	if cfg.JWT.Enabled {
		authn = internalmiddleware.JWT(deps.tokens)
		writer = internalmiddleware.RequireRoles(models.RoleAdmin)
	}
	secured := api.Group("", authn)
	secured.GET("/metrics/summary", metricsHandler.Summary)

	tt := deps.timetable
	schedule := secured.Group("/schedule")
	schedule.GET("", tt.Load)
	schedule.PUT("", writer, tt.Save)
	schedule.POST("/commit", writer, tt.Commit)
	schedule.GET("/validate", tt.Validate)
	schedule.GET("/stats", tt.Stats)
	schedule.GET("/export", tt.Export)
	schedule.POST("/exports", deps.exports.Publish)
	schedule.POST("/sessions/check", tt.Check)
	schedule.POST("/sessions", writer, tt.Place)
	schedule.DELETE("/sessions/:id", writer, tt.Remove)
	schedule.POST("/sessions/:id/move", writer, tt.Move)
	schedule.POST("/time-slots", writer, tt.AddTimeSlot)
	schedule.POST("/time-slots/rename", writer, tt.RenameTimeSlot)
	schedule.DELETE("/time-slots", writer, tt.RemoveTimeSlot)
	schedule.POST("/sections", writer, tt.AddSection)
	schedule.DELETE("/sections/:id", writer, tt.RemoveSection)

	secured.GET("/schedules", tt.ListSnapshots)
	secured.GET("/schedules/:id", tt.GetSnapshot)

	if gen := deps.generator; gen != nil {
		generator := secured.Group("/generator", writer)
		generator.POST("/run", gen.Run)
		generator.POST("/tasks", gen.Submit)
		generator.GET("/tasks/:id", gen.Status)
		generator.DELETE("/tasks/:id", gen.Cancel)
	}

	if cat := deps.catalog; cat != nil {
		catalog := secured.Group("/catalog")
		catalog.GET("/faculty", cat.ListFaculty)
		catalog.POST("/faculty", writer, cat.CreateFaculty)
		catalog.GET("/rooms", cat.ListRooms)
		catalog.POST("/rooms", writer, cat.CreateRoom)
		catalog.GET("/subjects", cat.ListSubjects)
		catalog.POST("/subjects", writer, cat.CreateSubject)
	}

	return r
}
