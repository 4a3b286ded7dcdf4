// Package handler implements the HTTP handlers of the linktrust
// server.
package handler

import (
	"errors"
	"net/http"

	"github.com/aspect-build/linktrust/internal/assetlinks"
	"github.com/aspect-build/linktrust/internal/assetlinks/loader"
	"github.com/aspect-build/linktrust/internal/authdomain"
	"github.com/gin-gonic/gin"
)

// HandleGetRelations handles GET /v1/relations?source=...&relation=...
// It returns the unidirectional declared relations of the source.
func HandleGetRelations(cache *assetlinks.Cache) gin.HandlerFunc {
	return relationsHandler(cache, false)
}

// HandleGetMutualRelations handles GET /v1/relations/mutual. Only the
// targets returned here are safe recipients for credential sharing.
func HandleGetMutualRelations(cache *assetlinks.Cache) gin.HandlerFunc {
	return relationsHandler(cache, true)
}

func relationsHandler(cache *assetlinks.Cache, mutual bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sourceStr := c.Query("source")
		if sourceStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source query parameter is required"})
			return
		}
		relationType := c.Query("relation")
		if relationType == "" {
			relationType = assetlinks.RelationGetLoginCreds
		}

		source, err := authdomain.Parse(sourceStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resolve := cache.Relations
		if mutual {
			resolve = cache.BidirectionalRelations
		}

		targets, err := resolve(c.Request.Context(), source, relationType)
		if err != nil {
			status, msg := resolutionErrorStatus(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"source":   source.String(),
			"relation": relationType,
			"mutual":   mutual,
			"targets":  targets.Sorted(),
		})
	}
}

func resolutionErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, loader.ErrUnsupportedDomain):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, loader.ErrDomainMismatch):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, assetlinks.ErrMalformedData):
		return http.StatusBadGateway, "upstream declaration is malformed"
	case errors.Is(err, loader.ErrFetch):
		return http.StatusBadGateway, "upstream fetch failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
