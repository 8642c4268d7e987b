package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	apierrors "dtbase_go_backend/internal/errors"
	"dtbase_go_backend/internal/models"
	"dtbase_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func addReferenceHandler(modelService *services.ModelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			RefID           string `json:"ref_id" binding:"required"`
			Title           string `json:"title" binding:"required"`
			Authors         string `json:"authors"`
			Year            string `json:"year"`
			PublicationType string `json:"publication_type"`
			Publisher       string `json:"publisher"`
			DOI             string `json:"doi"`
			URL             string `json:"url"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apierrors.HandleError(c, apierrors.New400Error(err.Error()))
			return
		}

		ref := models.Reference{
			RefID:           request.RefID,
			Title:           request.Title,
			Authors:         request.Authors,
			Year:            request.Year,
			PublicationType: request.PublicationType,
			Publisher:       request.Publisher,
			DOI:             request.DOI,
			URL:             request.URL,
		}
		if err := modelService.AddReference(ref); err != nil {
			apierrors.HandleError(c, apierrors.FromModelError(err))
			return
		}
		c.JSON(http.StatusCreated, ref)
	}
}

func listReferencesHandler(modelService *services.ModelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		refs, err := modelService.References()
		if err != nil {
			apierrors.HandleError(c, apierrors.New500Error(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"references": refs})
	}
}

func getReferenceHandler(modelService *services.ModelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, err := modelService.GetReference(c.Param("ref_id"))
		if err != nil {
			apierrors.HandleError(c, apierrors.FromModelError(err))
			return
		}
		c.JSON(http.StatusOK, ref)
	}
}

func removeReferenceHandler(modelService *services.ModelService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := modelService.RemoveReference(c.Param("ref_id")); err != nil {
			apierrors.HandleError(c, apierrors.FromModelError(err))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// importReferencesHandler accepts a multipart upload: the bibliography
// file plus a format field ("ris" or "bibtex"; guessed from the file
// extension when absent). RIS imports also need ref_ids, a JSON list
// with one id per record.
func importReferencesHandler(importService *services.ReferenceImportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			apierrors.HandleError(c, apierrors.New400Error("a bibliography file upload is required"))
			return
		}

		format := strings.ToLower(c.PostForm("format"))
		if format == "" {
			switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
			case ".ris":
				format = "ris"
			case ".bib", ".bibtex":
				format = "bibtex"
			}
		}

		file, err := fileHeader.Open()
		if err != nil {
			apierrors.HandleError(c, apierrors.New500Error(err))
			return
		}
		defer file.Close()

		var refs []models.Reference
		switch format {
		case "ris":
			var refIDs []string
			if raw := c.PostForm("ref_ids"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &refIDs); err != nil {
					apierrors.HandleError(c, apierrors.New400Error("Invalid ref_ids format"))
					return
				}
			}
			refs, err = importService.ImportRIS(file, refIDs)
		case "bibtex":
			refs, err = importService.ImportBibTeX(file)
		default:
			apierrors.HandleError(c, apierrors.New400Error(fmt.Sprintf("unsupported format %q: use ris or bibtex", format)))
			return
		}
		if err != nil {
			apierrors.HandleError(c, apierrors.FromModelError(err))
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"imported":   len(refs),
			"references": refs,
		})
	}
}

func validateRISHandler(importService *services.ReferenceImportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			apierrors.HandleError(c, apierrors.New400Error("an RIS file upload is required"))
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			apierrors.HandleError(c, apierrors.New500Error(err))
			return
		}
		defer file.Close()

		if err := importService.ValidateRIS(file); err != nil {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": true})
	}
}
