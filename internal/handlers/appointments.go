package handlers

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/models"
	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	appointments *services.AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(appointments *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// CreateAppointment books a doctor's slot and returns the checkout URL.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	var in services.BookingInput
	if err := utils.BindJSON(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}

	booking, err := h.appointments.Book(c.Request.Context(), a, in)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Created(c, "Appointment booked successfully!", booking)
}

func (h *AppointmentHandler) GetMyAppointments(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	var f services.AppointmentFilter
	if err := utils.BindQuery(c, &f); err != nil {
		utils.Abort(c, err)
		return
	}
	res, err := h.appointments.ListMine(c.Request.Context(), a, f, pageOptions(c))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Paginated(c, "Appointment fetched successfully!", res)
}

func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	var f services.AppointmentFilter
	if err := utils.BindQuery(c, &f); err != nil {
		utils.Abort(c, err)
		return
	}
	res, err := h.appointments.List(c.Request.Context(), f, pageOptions(c))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Paginated(c, "Appointment retrieval successfully", res)
}

// UpdateStatusRequest is the body of PATCH /appointment/status/:id.
type UpdateStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=SCHEDULED INPROGRESS COMPLETED CANCELED"`
}

func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.Abort(c, err)
		return
	}
	appt, err := h.appointments.ChangeStatus(c.Request.Context(), a, c.Param("id"), req.Status)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Appointment status changed successfully", appt)
}
