package handlers

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/models"
	"medicare-server/internal/services"
	"medicare-server/internal/storage"
	"medicare-server/internal/utils"
)

// UserHandler handles account creation and the current user's profile.
type UserHandler struct {
	users *services.UserService
	store storage.Store
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *services.UserService, store storage.Store) *UserHandler {
	return &UserHandler{users: users, store: store}
}

// CreatePatient registers a patient. The body is multipart with a JSON "data"
// field and an optional "file" photo.
func (h *UserHandler) CreatePatient(c *gin.Context) {
	var in services.CreatePatientInput
	if err := utils.BindMultipartData(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	photo, err := uploadFile(c, h.store, "file")
	if err != nil {
		utils.Abort(c, err)
		return
	}

	patient, err := h.users.CreatePatient(c.Request.Context(), in, photo)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Created(c, "Patient created successfully!", patient)
}

func (h *UserHandler) CreateDoctor(c *gin.Context) {
	var in services.CreateDoctorInput
	if err := utils.BindMultipartData(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	photo, err := uploadFile(c, h.store, "file")
	if err != nil {
		utils.Abort(c, err)
		return
	}

	doctor, err := h.users.CreateDoctor(c.Request.Context(), in, photo)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Created(c, "Doctor created successfully!", doctor)
}

func (h *UserHandler) CreateAdmin(c *gin.Context) {
	var in services.CreateAdminInput
	if err := utils.BindMultipartData(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	photo, err := uploadFile(c, h.store, "file")
	if err != nil {
		utils.Abort(c, err)
		return
	}

	admin, err := h.users.CreateAdmin(c.Request.Context(), in, photo)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Created(c, "Admin created successfully!", admin)
}

// GetUsers lists accounts with filters and pagination.
func (h *UserHandler) GetUsers(c *gin.Context) {
	var f services.UserFilter
	if err := utils.BindQuery(c, &f); err != nil {
		utils.Abort(c, err)
		return
	}
	res, err := h.users.List(c.Request.Context(), f, pageOptions(c))
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Paginated(c, "Users data fetched!", res)
}

func (h *UserHandler) GetMe(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	me, err := h.users.GetMe(c.Request.Context(), a)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "My profile data fetched!", me)
}

// UpdateMyProfile updates the caller's own profile. Accepts JSON or multipart
// with a "data" field and an optional "file" photo.
func (h *UserHandler) UpdateMyProfile(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	var in services.ProfileUpdate
	if err := utils.BindMultipartData(c, &in); err != nil {
		utils.Abort(c, err)
		return
	}
	photo, err := uploadFile(c, h.store, "file")
	if err != nil {
		utils.Abort(c, err)
		return
	}

	profile, err := h.users.UpdateMyProfile(c.Request.Context(), a, in, photo)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "My profile updated!", profile)
}

// ChangeStatusRequest is the body of PATCH /user/:id/status.
type ChangeStatusRequest struct {
	Status models.UserStatus `json:"status" binding:"required,oneof=ACTIVE BLOCKED DELETED"`
}

func (h *UserHandler) ChangeStatus(c *gin.Context) {
	var req ChangeStatusRequest
	if err := utils.BindJSON(c, &req); err != nil {
		utils.Abort(c, err)
		return
	}
	user, err := h.users.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		utils.Abort(c, err)
		return
	}
	utils.Success(c, "Users profile status changed!", user)
}
