package api

import (
	"dtbase_go_backend/internal/auth"
	"dtbase_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, modelService *services.ModelService, importService *services.ReferenceImportService, quantifyService *services.QuantifyService, exportService *services.ExportService) {
	api := r.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.POST("/nodes", addNodeHandler(modelService))
		api.GET("/nodes", listNodesHandler(modelService))
		api.GET("/nodes/:node_id", getNodeHandler(modelService))
		api.DELETE("/nodes/:node_id", removeNodeHandler(modelService))

		api.POST("/links", addLinkHandler(modelService))
		api.GET("/links", listLinksHandler(modelService))
		api.GET("/links/:link_id", getLinkHandler(modelService))
		api.DELETE("/links/:link_id", removeLinkHandler(modelService))

		api.POST("/references", addReferenceHandler(modelService))
		api.GET("/references", listReferencesHandler(modelService))
		api.GET("/references/:ref_id", getReferenceHandler(modelService))
		api.DELETE("/references/:ref_id", removeReferenceHandler(modelService))
		api.POST("/references/import", importReferencesHandler(importService))
		api.POST("/references/validate", validateRISHandler(importService))

		api.POST("/quantify", quantifyHandler(quantifyService))
		api.GET("/export", exportHandler(exportService))
	}
}
