package handlers

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/services"
	"medicare-server/internal/storage"
	"medicare-server/internal/utils"
)

// DoctorHandler serves doctor profiles.
type DoctorHandler struct {
	doctors *services.DoctorService
}

func NewDoctorHandler(doctors *services.DoctorService) *DoctorHandler {
	return &DoctorHandler{doctors: doctors}
}

func (h *DoctorHandler) List(c *gin.Context) {
	var f services.DoctorFilter
	if err := utils.BindQuery(c, &f); err != nil {
		utils.Abort(c, err)
		return
	}
	res, err := h.doctors.List(c.Request.Context(), f, pageOptions(c))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Paginated(c, "Doctors retrieval successfully", res)
}

func (h *DoctorHandler) Get(c *gin.Context) {
	doctor, err := h.doctors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Doctor retrieval successfully", doctor)
}

func (h *DoctorHandler) Update(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	var in services.DoctorUpdate
	if err := utils.BindJSON(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	doctor, err := h.doctors.Update(c.Request.Context(), a, c.Param("id"), in)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Doctor data updated!", doctor)
}

func (h *DoctorHandler) SoftDelete(c *gin.Context) {
	doctor, err := h.doctors.SoftDelete(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Doctor soft deleted successfully", doctor)
}

func (h *DoctorHandler) Delete(c *gin.Context) {
	doctor, err := h.doctors.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Doctor deleted successfully", doctor)
}

// PatientHandler serves patient profiles.
type PatientHandler struct {
	patients *services.PatientService
}

func NewPatientHandler(patients *services.PatientService) *PatientHandler {
	return &PatientHandler{patients: patients}
}

func (h *PatientHandler) List(c *gin.Context) {
	var f services.ProfileFilter
	if err := utils.BindQuery(c, &f); err != nil {
		utils.Abort(c, err)
		return
	}
	res, err := h.patients.List(c.Request.Context(), f, pageOptions(c))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Paginated(c, "Patient retrieval successfully", res)
}

func (h *PatientHandler) Get(c *gin.Context) {
	patient, err := h.patients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Patient retrieval successfully", patient)
}

func (h *PatientHandler) Update(c *gin.Context) {
	var in services.ProfileUpdate
	if err := utils.BindJSON(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	patient, err := h.patients.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Patient updated successfully", patient)
}

func (h *PatientHandler) SoftDelete(c *gin.Context) {
	patient, err := h.patients.SoftDelete(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Patient soft deleted successfully", patient)
}

// AdminHandler serves admin profiles.
type AdminHandler struct {
	admins *services.AdminService
}

func NewAdminHandler(admins *services.AdminService) *AdminHandler {
	return &AdminHandler{admins: admins}
}

func (h *AdminHandler) List(c *gin.Context) {
	var f services.ProfileFilter
	if err := utils.BindQuery(c, &f); err != nil {
		utils.Abort(c, err)
		return
	}
	res, err := h.admins.List(c.Request.Context(), f, pageOptions(c))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Paginated(c, "Admin data fetched!", res)
}

func (h *AdminHandler) Get(c *gin.Context) {
	admin, err := h.admins.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Admin data fetched by id!", admin)
}

func (h *AdminHandler) Update(c *gin.Context) {
	var in services.ProfileUpdate
	if err := utils.BindJSON(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	admin, err := h.admins.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Admin data updated!", admin)
}

func (h *AdminHandler) SoftDelete(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	admin, err := h.admins.SoftDelete(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Admin data deleted!", admin)
}

// SpecialtyHandler serves the specialty catalogue.
type SpecialtyHandler struct {
	specialties *services.SpecialtyService
	store       storage.Store
}

func NewSpecialtyHandler(specialties *services.SpecialtyService, store storage.Store) *SpecialtyHandler {
	return &SpecialtyHandler{specialties: specialties, store: store}
}

// Create adds a specialty from a multipart "data" field and an optional "file" icon.
func (h *SpecialtyHandler) Create(c *gin.Context) {
	var in services.SpecialtyInput
	if err := utils.BindMultipartData(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	icon, err := uploadFile(c, h.store, "file")
	if err != nil {
		utils.Abort(c, err)
		return
	}
	specialty, err := h.specialties.Create(c.Request.Context(), in, icon)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Created(c, "Specialties created successfully!", specialty)
}

func (h *SpecialtyHandler) List(c *gin.Context) {
	list, err := h.specialties.List(c.Request.Context())
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Specialties data fetched successfully", list)
}

func (h *SpecialtyHandler) Delete(c *gin.Context) {
	specialty, err := h.specialties.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Specialty deleted successfully", specialty)
}
