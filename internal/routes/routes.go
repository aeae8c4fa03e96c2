package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"medicare-server/internal/config"
	"medicare-server/internal/events"
	"medicare-server/internal/handlers"
	"medicare-server/internal/mailer"
	"medicare-server/internal/middleware"
	"medicare-server/internal/models"
	"medicare-server/internal/payment"
	"medicare-server/internal/services"
	"medicare-server/internal/storage"
)

// Deps are the collaborators the HTTP layer is built from. Booking opens the
// checkout of a new appointment, Checkout the one of a later payment attempt.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Log       zerolog.Logger
	Store     storage.Store
	Mailer    mailer.Mailer
	Events    events.Publisher
	Booking   payment.Gateway
	Checkout  payment.Gateway
	Validator services.Validator
	Limiter   middleware.Counter
}

const (
	superAdmin = models.RoleSuperAdmin
	admin      = models.RoleAdmin
	doctor     = models.RoleDoctor
	patient    = models.RolePatient
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg := d.Config

	authService := services.NewAuthService(d.DB, cfg, d.Mailer, d.Log)
	userService := services.NewUserService(d.DB, cfg)

	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService, d.Store)
	doctorHandler := handlers.NewDoctorHandler(services.NewDoctorService(d.DB))
	patientHandler := handlers.NewPatientHandler(services.NewPatientService(d.DB))
	adminHandler := handlers.NewAdminHandler(services.NewAdminService(d.DB))
	specialtyHandler := handlers.NewSpecialtyHandler(services.NewSpecialtyService(d.DB), d.Store)
	scheduleHandler := handlers.NewScheduleHandler(services.NewScheduleService(d.DB), services.NewDoctorScheduleService(d.DB))
	appointmentHandler := handlers.NewAppointmentHandler(services.NewAppointmentService(d.DB, d.Booking, d.Events, d.Log))
	paymentHandler := handlers.NewPaymentHandler(
		services.NewPaymentService(d.DB, d.Checkout, d.Validator, d.Events, d.Mailer, d.Log),
		cfg.Stripe.WebhookSecret, d.Log)
	prescriptionHandler := handlers.NewPrescriptionHandler(services.NewPrescriptionService(d.DB))
	reviewHandler := handlers.NewReviewHandler(services.NewReviewService(d.DB))
	metadataHandler := handlers.NewMetadataHandler(services.NewMetadataService(d.DB))

	auth := func(roles ...models.Role) gin.HandlerFunc {
		return middleware.Authenticate(cfg, d.DB, roles...)
	}
	authLimit := middleware.RateLimit(d.Limiter, middleware.RateLimitOptions{
		Scope:          "auth",
		Max:            cfg.RateLimit.AuthMax,
		Window:         cfg.RateLimit.AuthWindow,
		Message:        "Too many login attempts, please try again later.",
		SkipSuccessful: true,
	}, d.Log)

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimit(d.Limiter, middleware.RateLimitOptions{
		Scope:  "api",
		Max:    cfg.RateLimit.APIMax,
		Window: cfg.RateLimit.APIWindow,
	}, d.Log))
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", authLimit, authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.POST("/change-password", auth(), authHandler.ChangePassword)
			authRoutes.POST("/forgot-password", authLimit, authHandler.ForgotPassword)
			authRoutes.POST("/reset-password", authHandler.ResetPassword)
		}

		userRoutes := api.Group("/user")
		{
			userRoutes.GET("", auth(admin), userHandler.GetUsers)
			userRoutes.GET("/me", auth(), userHandler.GetMe)
			userRoutes.POST("/create-patient", userHandler.CreatePatient)
			userRoutes.POST("/create-doctor", auth(admin), userHandler.CreateDoctor)
			userRoutes.POST("/create-admin", auth(admin), userHandler.CreateAdmin)
			userRoutes.PATCH("/update-my-profile", auth(), userHandler.UpdateMyProfile)
			userRoutes.PATCH("/:id/status", auth(admin), userHandler.ChangeStatus)
		}

		doctorRoutes := api.Group("/doctor")
		{
			doctorRoutes.GET("", doctorHandler.List)
			doctorRoutes.GET("/:id", doctorHandler.Get)
			doctorRoutes.PATCH("/:id", auth(admin, doctor), doctorHandler.Update)
			doctorRoutes.DELETE("/soft/:id", auth(admin), doctorHandler.SoftDelete)
			doctorRoutes.DELETE("/:id", auth(admin), doctorHandler.Delete)
		}

		patientRoutes := api.Group("/patient")
		{
			patientRoutes.GET("", auth(admin), patientHandler.List)
			patientRoutes.GET("/:id", auth(admin, doctor), patientHandler.Get)
			patientRoutes.PATCH("/:id", auth(admin), patientHandler.Update)
			patientRoutes.DELETE("/soft/:id", auth(admin), patientHandler.SoftDelete)
		}

		adminRoutes := api.Group("/admin")
		adminRoutes.Use(auth(admin))
		{
			adminRoutes.GET("", adminHandler.List)
			adminRoutes.GET("/:id", adminHandler.Get)
			adminRoutes.PATCH("/:id", adminHandler.Update)
			adminRoutes.DELETE("/soft/:id", adminHandler.SoftDelete)
		}

		specialtyRoutes := api.Group("/specialties")
		{
			specialtyRoutes.GET("", specialtyHandler.List)
			specialtyRoutes.POST("", auth(admin), specialtyHandler.Create)
			specialtyRoutes.DELETE("/:id", auth(admin), specialtyHandler.Delete)
		}

		scheduleRoutes := api.Group("/schedule")
		{
			scheduleRoutes.POST("", auth(admin), scheduleHandler.Generate)
			scheduleRoutes.GET("", auth(doctor), scheduleHandler.ListForDoctor)
			scheduleRoutes.GET("/:id", auth(admin), scheduleHandler.Get)
			scheduleRoutes.DELETE("/:id", auth(admin), scheduleHandler.Delete)
		}

		doctorScheduleRoutes := api.Group("/doctor-schedule")
		{
			doctorScheduleRoutes.POST("", auth(doctor), scheduleHandler.Claim)
			doctorScheduleRoutes.GET("/my-schedule", auth(doctor), scheduleHandler.MySchedule)
			doctorScheduleRoutes.GET("", auth(admin, doctor, patient), scheduleHandler.ListDoctorSchedules)
			doctorScheduleRoutes.DELETE("/:scheduleId", auth(doctor), scheduleHandler.Release)
		}

		appointmentRoutes := api.Group("/appointment")
		{
			appointmentRoutes.POST("", auth(patient, admin), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("/my-appointments", auth(), appointmentHandler.GetMyAppointments)
			appointmentRoutes.GET("", auth(admin), appointmentHandler.GetAppointments)
			appointmentRoutes.PATCH("/status/:id", auth(admin, doctor), appointmentHandler.UpdateAppointmentStatus)
		}

		api.POST("/payment/init-payment/:appointmentId", auth(patient), paymentHandler.InitPayment)

		prescriptionRoutes := api.Group("/prescription")
		{
			prescriptionRoutes.POST("", auth(doctor), prescriptionHandler.Create)
			prescriptionRoutes.GET("/my-prescription", auth(patient), prescriptionHandler.Mine)
			prescriptionRoutes.GET("", auth(admin), prescriptionHandler.List)
			prescriptionRoutes.GET("/:id/pdf", auth(admin, doctor, patient), prescriptionHandler.PDF)
		}

		reviewRoutes := api.Group("/review")
		{
			reviewRoutes.POST("", auth(patient), reviewHandler.Create)
			reviewRoutes.GET("", reviewHandler.List)
		}

		api.GET("/metadata", auth(superAdmin, admin, doctor, patient), metadataHandler.Dashboard)
	}

	// Gateway callbacks arrive from a few provider addresses and are not
	// subject to the per-IP limiter.
	callbacks := router.Group("/api/v1/payment")
	{
		callbacks.POST("/webhook", paymentHandler.Webhook)
		callbacks.GET("/ipn", paymentHandler.ValidatePayment)
	}

	if disk, ok := d.Store.(*storage.Disk); ok && disk != nil {
		router.Static("/uploads", disk.Dir())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "API NOT FOUND!",
			"error": gin.H{
				"path":    c.Request.URL.Path,
				"message": "Your requested path is not found!",
			},
		})
	})
}
