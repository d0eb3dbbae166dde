package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/internal/handlers"
	"github.com/01moynul/seller-console/internal/middleware"
)

// Options configures the router beyond the handlers themselves.
type Options struct {
	AllowedOrigin string
	UploadsDir    string // served under /uploads when set
	Log           *zap.Logger
}

// CORSMiddleware tells the browser that the console frontend may call us.
func CORSMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(c *gin.Context) {
		// 1. Only the configured frontend
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)

		// 2. Credentials
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		// 3. Headers we use ("Authorization" carries the JWT)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")

		// 4. Methods
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// 5. Preflight
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if opts.Log != nil {
		router.Use(middleware.LoggingMiddleware(opts.Log))
	}

	// --- CORS first, then metrics ---
	router.Use(CORSMiddleware(opts.AllowedOrigin))
	router.Use(middleware.PrometheusMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.UploadsDir != "" {
		router.Static("/uploads", opts.UploadsDir)
	}

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/auth/register", h.RegisterSeller)
		v1.POST("/auth/login", h.Login)
		v1.POST("/auth/password-reset", h.RequestPasswordReset)
		v1.POST("/auth/password-reset/confirm", h.ConfirmPasswordReset)

		// --- Taxonomy Routes (Public) ---
		v1.GET("/categories", h.GetAllCategories)
		v1.GET("/brands", h.GetAllBrands)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(h.Tokens))
		{
			auth.POST("/auth/logout", h.Logout)

			// --- Seller Account ---
			seller := auth.Group("/seller")
			{
				seller.GET("/profile", h.GetProfile)
				seller.PATCH("/profile", h.UpdateProfile)
				seller.GET("/verification", h.GetVerification)
				seller.GET("/notifications", h.GetMyNotifications)
				seller.DELETE("/notifications", h.ClearNotifications)
				seller.DELETE("/notifications/:id", h.DismissNotification)
				seller.POST("/documents/submit", h.SubmitDocuments)
				seller.POST("/documents/:category", h.UploadDocument)
				seller.DELETE("/documents/:category", h.DeleteDocument)
			}

			// --- Products & Inventory ---
			products := auth.Group("/products")
			{
				products.POST("", h.CreateProduct)
				products.GET("", h.ListProducts)
				products.GET("/search", h.SearchProducts)
				products.GET("/stats", h.GetSellerStats)
				products.GET("/export", h.ExportProducts)
				products.POST("/describe", h.DescribeProduct)

				// Bulk import
				products.POST("/bulk/preview", h.PreviewBulkUpload)
				products.POST("/bulk", h.StartBulkUpload)
				products.GET("/bulk", h.ListBulkUploads)
				products.GET("/bulk/:id", h.GetBulkUpload)
				products.DELETE("/bulk/:id", h.DeleteBulkUpload)

				products.GET("/:id", h.GetProduct)
				products.DELETE("/:id", h.DeleteProduct)
				products.PATCH("/:id/variants/:variantId/stock", h.UpdateVariantStock)
				products.POST("/:id/sales", h.RecordSale)
			}

			// --- Orders ---
			orders := auth.Group("/orders")
			{
				orders.GET("", h.GetMyOrders)
				orders.GET("/by-path", h.GetOrderDetails)
				orders.PATCH("/:id/status", h.UpdateOrderStatus)
			}

			// --- Reviewer Routes ---
			reviewer := auth.Group("/reviewer")
			reviewer.Use(middleware.ReviewerMiddleware())
			{
				reviewer.PATCH("/sellers/:id/documents/:category", h.ReviewDocument)
			}
		}
	}

	return router
}
