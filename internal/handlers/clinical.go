package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

// PrescriptionHandler handles prescriptions and their PDF rendition.
type PrescriptionHandler struct {
	prescriptions *services.PrescriptionService
}

func NewPrescriptionHandler(prescriptions *services.PrescriptionService) *PrescriptionHandler {
	return &PrescriptionHandler{prescriptions: prescriptions}
}

func (h *PrescriptionHandler) Create(c *gin.Context) {
	d, ok := doctorActor(c)
	if !ok {
		return
	}
	var in services.PrescriptionInput
	if err := utils.BindJSON(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	p, err := h.prescriptions.Create(c.Request.Context(), d, in)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Created(c, "Prescription created successfully", p)
}

func (h *PrescriptionHandler) Mine(c *gin.Context) {
	p, ok := patientActor(c)
	if !ok {
		return
	}
	res, err := h.prescriptions.Mine(c.Request.Context(), p.Profile.ID, pageOptions(c))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Paginated(c, "Prescription fetched successfully", res)
}

func (h *PrescriptionHandler) List(c *gin.Context) {
	var f services.PrescriptionFilter
	if err := utils.BindQuery(c, &f); err != nil {
		utils.Abort(c, err)
		return
	}
	res, err := h.prescriptions.List(c.Request.Context(), f, pageOptions(c))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Paginated(c, "Prescriptions retrieval successfully", res)
}

// PDF streams a prescription as a PDF document.
func (h *PrescriptionHandler) PDF(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	id := c.Param("id")
	doc, err := h.prescriptions.PDF(c.Request.Context(), a, id)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="prescription-`+id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", doc)
}

// ReviewHandler handles doctor reviews.
type ReviewHandler struct {
	reviews *services.ReviewService
}

func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) Create(c *gin.Context) {
	p, ok := patientActor(c)
	if !ok {
		return
	}
	var in services.ReviewInput
	if err := utils.BindJSON(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	review, err := h.reviews.Create(c.Request.Context(), p, in)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Created(c, "Review created successfully", review)
}

func (h *ReviewHandler) List(c *gin.Context) {
	var f services.ReviewFilter
	if err := utils.BindQuery(c, &f); err != nil {
		utils.Abort(c, err)
		return
	}
	res, err := h.reviews.List(c.Request.Context(), f, pageOptions(c))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Paginated(c, "Reviews retrieval successfully", res)
}

// MetadataHandler serves dashboard figures for the current actor.
type MetadataHandler struct {
	metadata *services.MetadataService
}

func NewMetadataHandler(metadata *services.MetadataService) *MetadataHandler {
	return &MetadataHandler{metadata: metadata}
}

func (h *MetadataHandler) Dashboard(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	data, err := h.metadata.Dashboard(c.Request.Context(), a)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Metadata retrieval successfully", data)
}
