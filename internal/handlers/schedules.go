package handlers

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/apperror"
	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

// ScheduleHandler manages the global slot calendar and doctors' claims on it.
type ScheduleHandler struct {
	schedules       *services.ScheduleService
	doctorSchedules *services.DoctorScheduleService
}

func NewScheduleHandler(schedules *services.ScheduleService, doctorSchedules *services.DoctorScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, doctorSchedules: doctorSchedules}
}

func doctorActor(c *gin.Context) (*services.DoctorActor, bool) {
	a, ok := currentActor(c)
	if !ok {
		return nil, false
	}
	d, ok := a.(*services.DoctorActor)
	if !ok {
		utils.Abort(c, apperror.Forbidden("Only doctors can access this resource"))
		return nil, false
	}
	return d, true
}

func patientActor(c *gin.Context) (*services.PatientActor, bool) {
	a, ok := currentActor(c)
	if !ok {
		return nil, false
	}
	p, ok := a.(*services.PatientActor)
	if !ok {
		utils.Abort(c, apperror.Forbidden("Only patients can access this resource"))
		return nil, false
	}
	return p, true
}

// Generate creates the 30 minute slots of a date and time window.
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var in services.ScheduleInput
	if err := utils.BindJSON(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	created, err := h.schedules.Generate(c.Request.Context(), in)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Created(c, "Schedule created successfully!", created)
}

// ListForDoctor lists slots the calling doctor has not claimed yet.
func (h *ScheduleHandler) ListForDoctor(c *gin.Context) {
	d, ok := doctorActor(c)
	if !ok {
		return
	}
	var r services.TimeRange
	if err := utils.BindQuery(c, &r); err != nil {
		utils.Abort(c, err)
		return
	}
	res, err := h.schedules.ListForDoctor(c.Request.Context(), d.Profile.ID, r, pageOptions(c))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Paginated(c, "Schedule fetched successfully!", res)
}

func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Schedule retrieval successfully", schedule)
}

func (h *ScheduleHandler) Delete(c *gin.Context) {
	schedule, err := h.schedules.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Schedule deleted successfully", schedule)
}

// Claim attaches global slots to the calling doctor.
func (h *ScheduleHandler) Claim(c *gin.Context) {
	d, ok := doctorActor(c)
	if !ok {
		return
	}
	var in services.ClaimInput
	if err := utils.BindJSON(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	n, err := h.doctorSchedules.Claim(c.Request.Context(), d.Profile.ID, in)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Created(c, "Doctor Schedule created successfully!", gin.H{"count": n})
}

func (h *ScheduleHandler) MySchedule(c *gin.Context) {
	d, ok := doctorActor(c)
	if !ok {
		return
	}
	var f services.DoctorScheduleFilter
	if err := utils.BindQuery(c, &f); err != nil {
		utils.Abort(c, err)
		return
	}
	res, err := h.doctorSchedules.Mine(c.Request.Context(), d.Profile.ID, f, pageOptions(c))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Paginated(c, "My Schedule fetched successfully!", res)
}

func (h *ScheduleHandler) ListDoctorSchedules(c *gin.Context) {
	var f services.DoctorScheduleFilter
	if err := utils.BindQuery(c, &f); err != nil {
		utils.Abort(c, err)
		return
	}
	res, err := h.doctorSchedules.List(c.Request.Context(), f, pageOptions(c))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Paginated(c, "Doctor Schedule retrieval successfully", res)
}

func (h *ScheduleHandler) Release(c *gin.Context) {
	d, ok := doctorActor(c)
	if !ok {
		return
	}
	if err := h.doctorSchedules.Release(c.Request.Context(), d.Profile.ID, c.Param("scheduleId")); err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "My Schedule deleted successfully!", nil)
}
