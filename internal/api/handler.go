package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"farmmarket/internal/models"
	"farmmarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	auth     *service.AuthService
	catalog  *service.CatalogService
	cart     *service.CartService
	checkout *service.CheckoutService
	orders   *service.OrderService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	auth *service.AuthService,
	catalog *service.CatalogService,
	cart *service.CartService,
	checkout *service.CheckoutService,
	orders *service.OrderService,
) *Handler {
	return &Handler{
		auth:     auth,
		catalog:  catalog,
		cart:     cart,
		checkout: checkout,
		orders:   orders,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/register", h.register)
		v1.POST("/auth/login", h.login)

		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)

		authed := v1.Group("")
		authed.Use(authRequired(h.auth))
		{
			authed.POST("/auth/logout", h.logout)

			authed.GET("/cart", h.viewCart)
			authed.POST("/cart/items", h.addToCart)
			authed.DELETE("/cart/items/:id", h.removeFromCart)

			authed.POST("/checkout", h.placeOrder)
			authed.GET("/orders", h.myOrders)
			authed.GET("/orders/:id", h.getOrder)

			farmer := authed.Group("/farmer")
			farmer.Use(requireRole(models.RoleFarmer))
			{
				farmer.GET("/products", h.farmerProducts)
				farmer.POST("/products", h.createProduct)
				farmer.GET("/orders", h.farmerOrders)
			}

			admin := authed.Group("/admin")
			admin.Use(requireRole(models.RoleAdmin))
			{
				admin.GET("/orders", h.adminOrders)
				admin.PUT("/orders/:id/status", h.updateOrderStatus)
			}
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

// register handles account creation
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		var storeErr *service.StorageError
		if errors.As(err, &storeErr) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store unavailable, try again"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// login handles credential verification and session issuance
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store unavailable, try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// logout invalidates the current session
func (h *Handler) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to log out"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// listProducts handles the public catalog listing
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to list products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct handles product detail
func (h *Handler) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

type createProductRequest struct {
	Name     string `json:"name" binding:"required"`
	Price    int64  `json:"price" binding:"required,min=0"`
	Quantity int    `json:"quantity" binding:"min=0"`
}

// createProduct handles farmer product creation
func (h *Handler) createProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	principal := currentPrincipal(c)
	product, err := h.catalog.CreateProduct(c.Request.Context(), req.Name, req.Price, req.Quantity, principal.UserID)
	if err != nil {
		var storeErr *service.StorageError
		if errors.As(err, &storeErr) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store unavailable, try again"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, product)
}

// farmerProducts lists the farmer's own products
func (h *Handler) farmerProducts(c *gin.Context) {
	principal := currentPrincipal(c)
	products, err := h.catalog.FarmerProducts(c.Request.Context(), principal.UserID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to list products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// addToCart inserts or increments a cart line for the caller
func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	principal := currentPrincipal(c)
	if err := h.cart.AddToCart(c.Request.Context(), principal.UserID, req.ProductID, req.Quantity); err != nil {
		var storeErr *service.StorageError
		if errors.As(err, &storeErr) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to add to cart"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

// viewCart lists the caller's cart
func (h *Handler) viewCart(c *gin.Context) {
	principal := currentPrincipal(c)
	lines, err := h.cart.ViewCart(c.Request.Context(), principal.UserID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": lines})
}

// removeFromCart deletes one cart line owned by the caller
func (h *Handler) removeFromCart(c *gin.Context) {
	lineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart line ID"})
		return
	}

	principal := currentPrincipal(c)
	if err := h.cart.RemoveFromCart(c.Request.Context(), principal.UserID, lineID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cart line not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// placeOrder runs the cart-to-order commit for the caller
func (h *Handler) placeOrder(c *gin.Context) {
	principal := currentPrincipal(c)

	orderID, err := h.checkout.PlaceOrder(c.Request.Context(), principal.UserID)
	if err != nil {
		status, body := checkoutErrorResponse(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id": orderID,
		"status":   models.StatusPending,
	})
}

// checkoutErrorResponse maps the commit engine's error taxonomy to
// user-facing outcomes.
func checkoutErrorResponse(err error) (int, gin.H) {
	var stockErr *service.InsufficientStockError
	var storeErr *service.StorageError
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest, gin.H{"error": "Cart is empty"}
	case errors.As(err, &stockErr):
		return http.StatusConflict, gin.H{
			"error":      "Out of stock",
			"product_id": stockErr.ProductID,
		}
	case errors.As(err, &storeErr):
		return http.StatusServiceUnavailable, gin.H{"error": "Checkout unavailable, try again"}
	default:
		return http.StatusInternalServerError, gin.H{"error": "Failed to place order"}
	}
}

// myOrders lists the caller's order history
func (h *Handler) myOrders(c *gin.Context) {
	principal := currentPrincipal(c)
	rows, err := h.orders.BuyerOrders(c.Request.Context(), principal.UserID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": rows})
}

// getOrder retrieves one order with its lines. Buyers may only read their
// own orders; admins may read any.
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, lines, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	principal := currentPrincipal(c)
	if principal.Role != models.RoleAdmin && order.UserID != principal.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": lines,
	})
}

// farmerOrders lists sold lines for the farmer's products
func (h *Handler) farmerOrders(c *gin.Context) {
	principal := currentPrincipal(c)
	rows, err := h.orders.FarmerOrders(c.Request.Context(), principal.UserID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": rows})
}

// adminOrders lists every order with the buyer named
func (h *Handler) adminOrders(c *gin.Context) {
	rows, err := h.orders.AllOrders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": rows})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateOrderStatus moves an order along the status transition table
func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.orders.UpdateStatus(c.Request.Context(), orderID, req.Status); err != nil {
		var transitionErr *service.InvalidTransitionError
		if errors.As(err, &transitionErr) {
			c.JSON(http.StatusConflict, gin.H{"error": transitionErr.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}
