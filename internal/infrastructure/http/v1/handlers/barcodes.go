package handlers

import (
	"github.com/gin-gonic/gin"

	"simbapos/internal/domain/barcodes"
	"simbapos/internal/infrastructure/http/v1/dto"
)

// BarcodeHandler exposes the barcode management endpoints.
type BarcodeHandler struct {
	*BaseHandler
	svc *barcodes.Service
}

// NewBarcodeHandler creates a barcode handler.
func NewBarcodeHandler(svc *barcodes.Service) *BarcodeHandler {
	return &BarcodeHandler{BaseHandler: NewBaseHandler(), svc: svc}
}

// Create registers an external barcode for a variant.
// POST /barcodes
func (h *BarcodeHandler) Create(c *gin.Context) {
	var req barcodes.CreateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	barcode, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, barcode)
}

// GenerateInternal issues a store-generated barcode for a variant.
// POST /variants/:variantId/barcodes/internal
func (h *BarcodeHandler) GenerateInternal(c *gin.Context) {
	variantID, ok := h.ParamID(c, "variantId")
	if !ok {
		return
	}

	barcode, err := h.svc.GenerateInternal(c.Request.Context(), variantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedData(c, barcode)
}

// ListByVariant lists all barcodes of one variant.
// GET /variants/:variantId/barcodes
func (h *BarcodeHandler) ListByVariant(c *gin.Context) {
	variantID, ok := h.ParamID(c, "variantId")
	if !ok {
		return
	}

	list, err := h.svc.ListByVariant(c.Request.Context(), variantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, list)
}

// Lookup resolves a scanned value to its barcode and variant.
// GET /barcodes/lookup/:value
func (h *BarcodeHandler) Lookup(c *gin.Context) {
	barcode, variant, err := h.svc.Lookup(c.Request.Context(), c.Param("value"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"barcode": barcode, "variant": variant})
}

// SetPrimary marks one barcode as the variant's primary.
// PUT /barcodes/:id/primary
func (h *BarcodeHandler) SetPrimary(c *gin.Context) {
	barcodeID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	barcode, err := h.svc.SetPrimary(c.Request.Context(), barcodeID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, barcode)
}

// Delete removes a barcode.
// DELETE /barcodes/:id
func (h *BarcodeHandler) Delete(c *gin.Context) {
	barcodeID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Remove(c.Request.Context(), barcodeID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.SuccessResponse{Success: true, Message: "barcode deleted"})
}
