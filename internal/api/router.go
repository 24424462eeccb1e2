package api

import (
	"github.com/Ruruu18/Smart-Parking-sub000/internal/api/handler"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/api/middleware"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/gin-gonic/gin"
)

// Handlers gom các handler của dashboard để SetupRouter không phải nhận quá nhiều tham số.
type Handlers struct {
	Auth       *handler.AuthHandler
	Spaces     *handler.ParkingSpaceHandler
	Scans      *handler.ScanHandler
	Dashboard  *handler.DashboardHandler
	WebSockets *handler.WebSocketHandler
}

func SetupRouter(h Handlers, authMw *middleware.AuthMiddleware) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors())

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/login", h.Auth.Login)
		authRoutes.POST("/logout", authMw.Authenticate(), h.Auth.Logout)
	}

	admin := authMw.AuthorizeRole(domain.RoleAdmin)
	r.GET("/ws", authMw.Authenticate(), admin, h.WebSockets.HandleWebSocket)

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate(), admin)
	{
		v1.GET("/dashboard", h.Dashboard.GetDashboard)
		v1.GET("/activity/:kind", h.Dashboard.ViewAll)

		spaceRoutes := v1.Group("/parking-spaces")
		{
			spaceRoutes.GET("", h.Spaces.GetAllParkingSpaces)
			spaceRoutes.POST("", h.Spaces.CreateParkingSpace)
			spaceRoutes.GET("/:id", h.Spaces.GetParkingSpaceByID)
			spaceRoutes.DELETE("/:id", h.Spaces.DeleteParkingSpace)
			spaceRoutes.POST("/:id/check-in", h.Scans.CheckIn)
			spaceRoutes.POST("/:id/check-out", h.Scans.CheckOut)
			spaceRoutes.GET("/:id/consistency", h.Scans.CheckConsistency)
			spaceRoutes.POST("/:id/repair", h.Scans.RepairOccupancy)
		}
	}
	return r
}

// SetupPaymentRouter dựng router cho binary payment-proxy.
func SetupPaymentRouter(ph *handler.PaymentHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors())

	r.POST("/checkout", ph.Checkout)
	r.POST("/webhook", ph.Webhook)
	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, Paymongo-Signature")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
