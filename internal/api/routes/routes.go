package routes

import (
	"net/http"

	"github.com/GimhanaMahela/BusWatch/internal/api/handlers"
	"github.com/GimhanaMahela/BusWatch/internal/api/middleware"
	"github.com/GimhanaMahela/BusWatch/internal/service"
	"github.com/GimhanaMahela/BusWatch/internal/socket"
	"github.com/GimhanaMahela/BusWatch/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupRouter wires the handlers and middleware into the route table.
func SetupRouter(
	db *mongo.Database,
	reportStore store.ReportStore,
	submissions *service.SubmissionService,
	wsHub *socket.Hub,
) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	reportHandler := &handlers.ReportHandler{Service: submissions, Store: reportStore}
	authHandler := &handlers.AuthHandler{DB: db}
	webSocketHandler := &handlers.WebSocketHandler{Hub: wsHub}

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "Backend is healthy!")
	})

	api := router.Group("/api")
	{
		api.GET("/ws", webSocketHandler.ServeWs)

		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.RegisterAdmin)
			auth.POST("/login", authHandler.LoginAdmin)
			auth.GET("/", middleware.Authenticate(), authHandler.GetAdmin)
		}

		// Submission is public; everything else on reports is admin-only.
		api.POST("/reports", reportHandler.SubmitReport)

		admin := api.Group("/")
		admin.Use(middleware.Authenticate())
		{
			admin.GET("/reports", reportHandler.GetAllReports)
			admin.GET("/reports/:id", reportHandler.GetReportByID)
			admin.PUT("/reports/:id/status", reportHandler.UpdateReportStatus)
			admin.DELETE("/reports/:id", reportHandler.DeleteReport)

			// Receipt lookup lives on its own prefix so the receipt handle
			// never shadows the internal ID parameter.
			admin.GET("/receipts/:receiptId", reportHandler.GetReportByReceiptID)
		}
	}

	return router
}
