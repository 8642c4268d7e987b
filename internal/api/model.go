package api

import (
	"net/http"

	apierrors "dtbase_go_backend/internal/errors"
	"dtbase_go_backend/internal/models"
	"dtbase_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func addNodeHandler(modelService *services.ModelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			NodeID   string `json:"node_id" binding:"required"`
			Name     string `json:"name"`
			Keywords string `json:"keywords"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apierrors.HandleError(c, apierrors.New400Error(err.Error()))
			return
		}

		node := models.Node{NodeID: request.NodeID, Name: request.Name, Keywords: request.Keywords}
		if err := modelService.AddNode(node); err != nil {
			apierrors.HandleError(c, apierrors.FromModelError(err))
			return
		}
		c.JSON(http.StatusCreated, node)
	}
}

func listNodesHandler(modelService *services.ModelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		nodes, err := modelService.Nodes()
		if err != nil {
			apierrors.HandleError(c, apierrors.New500Error(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"nodes": nodes})
	}
}

func getNodeHandler(modelService *services.ModelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		node, err := modelService.GetNode(c.Param("node_id"))
		if err != nil {
			apierrors.HandleError(c, apierrors.FromModelError(err))
			return
		}
		c.JSON(http.StatusOK, node)
	}
}

func removeNodeHandler(modelService *services.ModelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := modelService.RemoveNode(c.Param("node_id")); err != nil {
			apierrors.HandleError(c, apierrors.FromModelError(err))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type estimateRequest struct {
	Type string  `json:"type" binding:"required"`
	A    float64 `json:"a"`
	B    float64 `json:"b"`
}

func (e estimateRequest) toModel() models.Estimate {
	return models.Estimate{Type: models.EstimateType(e.Type), A: e.A, B: e.B}
}

func addLinkHandler(modelService *services.ModelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			LinkID   string          `json:"link_id" binding:"required"`
			ParentID string          `json:"parent_id" binding:"required"`
			ChildID  string          `json:"child_id" binding:"required"`
			M1       estimateRequest `json:"m1" binding:"required"`
			M2       estimateRequest `json:"m2" binding:"required"`
			M3       estimateRequest `json:"m3" binding:"required"`
			M1Memo   string          `json:"m1_memo"`
			M2Memo   string          `json:"m2_memo"`
			M3Memo   string          `json:"m3_memo"`
			RefID    string          `json:"ref_id"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apierrors.HandleError(c, apierrors.New400Error(err.Error()))
			return
		}

		link := models.Link{
			LinkID:   request.LinkID,
			ParentID: request.ParentID,
			ChildID:  request.ChildID,
			M1:       request.M1.toModel(),
			M2:       request.M2.toModel(),
			M3:       request.M3.toModel(),
			M1Memo:   request.M1Memo,
			M2Memo:   request.M2Memo,
			M3Memo:   request.M3Memo,
			RefID:    request.RefID,
		}
		if err := modelService.AddLink(link); err != nil {
			apierrors.HandleError(c, apierrors.FromModelError(err))
			return
		}
		created, err := modelService.GetLink(request.LinkID)
		if err != nil {
			apierrors.HandleError(c, apierrors.New500Error(err))
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func listLinksHandler(modelService *services.ModelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		links, err := modelService.Links()
		if err != nil {
			apierrors.HandleError(c, apierrors.New500Error(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"links": links})
	}
}

func getLinkHandler(modelService *services.ModelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		link, err := modelService.GetLink(c.Param("link_id"))
		if err != nil {
			apierrors.HandleError(c, apierrors.FromModelError(err))
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

func removeLinkHandler(modelService *services.ModelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := modelService.RemoveLink(c.Param("link_id")); err != nil {
			apierrors.HandleError(c, apierrors.FromModelError(err))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func quantifyHandler(quantifyService *services.QuantifyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			TargetNode string `json:"target_node" binding:"required"`
			Method     string `json:"method" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apierrors.HandleError(c, apierrors.New400Error(err.Error()))
			return
		}

		result, err := quantifyService.Calculate(request.TargetNode, services.AggregationMethod(request.Method))
		if err != nil {
			apierrors.HandleError(c, apierrors.FromModelError(err))
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func exportHandler(exportService *services.ExportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "application/zip")
		c.Header("Content-Disposition", `attachment; filename="model.zip"`)
		if err := exportService.ExportArchive(c.Writer); err != nil {
			apierrors.HandleError(c, apierrors.New500Error(err))
			return
		}
	}
}
