package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/aspect-build/linktrust/internal/assetlinks"
	"github.com/aspect-build/linktrust/internal/store"
	"github.com/gin-gonic/gin"
)

// maxSnapshotSize bounds how large an imported snapshot may be.
const maxSnapshotSize = 8 << 20

// HandleExportCache handles GET /v1/cache. It returns the snapshot of
// all currently live cache entries.
func HandleExportCache(cache *assetlinks.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := cache.Export()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Data(http.StatusOK, "application/json", data)
	}
}

// HandleImportCache handles PUT /v1/cache. The request body is a
// snapshot in the export format; still-live entries are merged into
// the cache.
func HandleImportCache(cache *assetlinks.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnapshotSize))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "read request body"})
			return
		}

		if err := cache.Import(data); err != nil {
			if errors.Is(err, assetlinks.ErrMalformedData) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "imported"})
	}
}

// HandleSaveSnapshot handles POST /v1/cache/save. It persists the
// current live entries to the snapshot store.
func HandleSaveSnapshot(cache *assetlinks.Cache, st *store.Store, keep int) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := cache.Export()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if err := st.SaveSnapshot(data, keep); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist snapshot"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "saved", "bytes": len(data)})
	}
}
