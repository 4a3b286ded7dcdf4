package server

import (
	"github.com/aspect-build/linktrust/internal/assetlinks"
	"github.com/aspect-build/linktrust/internal/server/handler"
	"github.com/aspect-build/linktrust/internal/store"
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the Gin router with all routes.
func NewRouter(cache *assetlinks.Cache, st *store.Store, cfg *Config) *gin.Engine {
	r := gin.Default()

	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORS(cfg.CORSOrigins))
	}

	r.GET("/", func(c *gin.Context) {
		c.String(200, "ok")
	})

	admin := AdminAuth(cfg.AdminToken)

	v1 := r.Group("/v1")
	{
		// Resolution
		v1.GET("/relations", handler.HandleGetRelations(cache))
		v1.GET("/relations/mutual", handler.HandleGetMutualRelations(cache))

		// Cache snapshot management
		v1.GET("/cache", handler.HandleExportCache(cache))
		v1.PUT("/cache", admin, handler.HandleImportCache(cache))
		v1.POST("/cache/save", admin, handler.HandleSaveSnapshot(cache, st, cfg.SnapshotKeep))
	}

	return r
}
