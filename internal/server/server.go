package server

import (
	"subscription-billing-backoffice/internal/handler"
	authmw "subscription-billing-backoffice/internal/middleware"
	"subscription-billing-backoffice/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo              *echo.Echo
	assignmentHandler *handler.AssignmentHandler
	invoiceHandler    *handler.InvoiceHandler
	tokenSecret       string
}

func NewServer(assignmentService service.AssignmentService, invoiceService service.InvoiceService, tokenSecret string) *Server {
	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:              e,
		assignmentHandler: handler.NewAssignmentHandler(assignmentService),
		invoiceHandler:    handler.NewInvoiceHandler(invoiceService),
		tokenSecret:       tokenSecret,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api.Use(authmw.AuthMiddleware(s.tokenSecret))

	// -------- assignments --------
	assignments := api.Group("/assignments")
	assignments.POST("", s.assignmentHandler.Create)
	assignments.GET("", s.assignmentHandler.List)
	assignments.GET("/lookup", s.assignmentHandler.Lookup)
	assignments.GET("/:id", s.assignmentHandler.GetByID)
	assignments.PUT("/:id", s.assignmentHandler.Replace)
	assignments.PATCH("/:id", s.assignmentHandler.Patch)
	assignments.DELETE("/:id", s.assignmentHandler.Delete)
	assignments.GET("/:id/invoices", s.invoiceHandler.ListBySubscription)

	api.GET("/customers/:id/assignments", s.assignmentHandler.ListByCustomer)
	api.GET("/plans/:id/assignments", s.assignmentHandler.ListByPlan)

	// -------- invoices --------
	invoices := api.Group("/invoices")
	invoices.GET("/:id", s.invoiceHandler.GetByID)
	invoices.POST("/batch-delete", s.invoiceHandler.BatchDelete)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
