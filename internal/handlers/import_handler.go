package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "caudal/internal/errors"
	"caudal/internal/services"
)

// maxImportSize caps uploaded CSV files at 10 MiB.
const maxImportSize = 10 << 20

// ImportHandler handles CSV import requests.
type ImportHandler struct {
	importService services.ImportServicer
	auditService  services.AuditServicer
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService services.ImportServicer, auditService services.AuditServicer) *ImportHandler {
	return &ImportHandler{importService: importService, auditService: auditService}
}

// Import handles a CSV upload for one entity type.
// @Summary     Import CSV
// @Description Upload a CSV file for the given entity. Rows are upserted by the entity's natural key; bad rows are reported, not fatal.
// @Tags        import
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       entity path string true "Entity type" Enums(accounts, categories, transactions, recurring, budgets, rules)
// @Param       file formData file true "CSV file with a header row"
// @Success     200 {object} services.ImportSummary "Import summary"
// @Failure     400 {object} ErrorResponse "Invalid entity or file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /import/{entity} [post]
func (h *ImportHandler) Import(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	entity := c.Param("entity")
	importer, err := h.importerFor(entity)
	if err != nil {
		respondWithError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidImportFile, "file field is required"))
		return
	}
	if fileHeader.Size > maxImportSize {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidImportFile, "file too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidImportFile, err))
		return
	}
	defer file.Close()

	summary, err := importer(file)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "IMPORT_CSV", entity, "", c.ClientIP(), map[string]interface{}{
		"file":    fileHeader.Filename,
		"created": summary.Created,
		"updated": summary.Updated,
		"failed":  len(summary.Failed),
	})

	c.JSON(http.StatusOK, summary)
}

func (h *ImportHandler) importerFor(entity string) (func(io.Reader) (*services.ImportSummary, error), error) {
	switch entity {
	case "accounts":
		return h.importService.ImportAccounts, nil
	case "categories":
		return h.importService.ImportCategories, nil
	case "transactions":
		return h.importService.ImportTransactions, nil
	case "recurring":
		return h.importService.ImportRecurring, nil
	case "budgets":
		return h.importService.ImportBudgets, nil
	case "rules":
		return h.importService.ImportRules, nil
	}
	return nil, apperrors.ErrUnknownImportType
}
