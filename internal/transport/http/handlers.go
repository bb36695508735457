package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Address  string `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Role    domain.Role `json:"role"`
	Address string      `json:"address,omitempty"`
}

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Role:    user.Role,
		Address: user.Address,
	}
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.deps.Auth.Register(c.Request.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Address:  req.Address,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := s.deps.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  toUserResponse(user),
	})
}

type productRequest struct {
	Name        string   `json:"name" binding:"required"`
	Slug        string   `json:"slug" binding:"required"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Barcode     string   `json:"barcode"`
	Price       string   `json:"price" binding:"required"`
	Quantity    int32    `json:"quantity"`
	Categories  []string `json:"categories"`
	Returnable  *bool    `json:"returnable"`
}

type productResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	Barcode     string   `json:"barcode,omitempty"`
	Price       string   `json:"price"`
	Quantity    int32    `json:"quantity"`
	Categories  []string `json:"categories,omitempty"`
	Returnable  bool     `json:"returnable"`
}

func toProductResponse(product domain.Product) productResponse {
	return productResponse{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		Description: product.Description,
		Image:       product.Image,
		Barcode:     product.Barcode,
		Price:       product.Price.String(),
		Quantity:    product.Quantity,
		Categories:  product.Categories,
		Returnable:  product.Returnable,
	}
}

func (s *Server) handleListProducts(c *gin.Context) {
	products, err := s.deps.Products.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, product := range products {
		out = append(out, toProductResponse(product))
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func (s *Server) handleGetProduct(c *gin.Context) {
	product, err := s.deps.Products.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

func (s *Server) handleCreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a decimal number"})
		return
	}

	now := time.Now().UTC()
	returnable := true
	if req.Returnable != nil {
		returnable = *req.Returnable
	}
	product := domain.Product{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Image:       req.Image,
		Barcode:     req.Barcode,
		Price:       price,
		Quantity:    req.Quantity,
		Categories:  req.Categories,
		Returnable:  returnable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errs := product.Validate(); len(errs) > 0 {
		respondError(c, errs[0])
		return
	}

	if err := s.deps.Products.CreateProduct(c.Request.Context(), product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(product))
}

func (s *Server) handleUpdateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be a decimal number"})
		return
	}

	existing, err := s.deps.Products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	existing.Name = req.Name
	existing.Slug = req.Slug
	existing.Description = req.Description
	existing.Image = req.Image
	existing.Barcode = req.Barcode
	existing.Price = price
	existing.Quantity = req.Quantity
	existing.Categories = req.Categories
	if req.Returnable != nil {
		existing.Returnable = *req.Returnable
	}
	existing.UpdatedAt = time.Now().UTC()

	if errs := existing.Validate(); len(errs) > 0 {
		respondError(c, errs[0])
		return
	}
	if err := s.deps.Products.UpdateProduct(c.Request.Context(), existing); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(existing))
}

type orderLineRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Qty       int32  `json:"qty" binding:"required"`
	UnitPrice string `json:"unit_price" binding:"required"`
}

type createOrderRequest struct {
	Lines         []orderLineRequest   `json:"lines" binding:"required"`
	Amount        string               `json:"amount" binding:"required"`
	Tax           string               `json:"tax"`
	Method        domain.PaymentMethod `json:"method" binding:"required"`
	Type          domain.OrderType     `json:"type"`
	Address       string               `json:"address"`
	PickupTime    *time.Time           `json:"pickup_time"`
	CustomerName  string               `json:"customer_name"`
	CustomerPhone string               `json:"customer_phone"`
}

type orderLineResponse struct {
	ProductID string             `json:"product_id"`
	Qty       int32              `json:"qty"`
	Amount    string             `json:"amount"`
	Status    domain.OrderStatus `json:"status"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	Status        domain.OrderStatus  `json:"status"`
	Type          domain.OrderType    `json:"type,omitempty"`
	PickupTime    *time.Time          `json:"pickup_time,omitempty"`
	CustomerName  string              `json:"customer_name,omitempty"`
	CustomerPhone string              `json:"customer_phone,omitempty"`
	Lines         []orderLineResponse `json:"lines"`
	Amount        string              `json:"amount"`
	Tax           string              `json:"tax"`
	Method        string              `json:"method"`
	CreatedAt     time.Time           `json:"created_at"`
}

func toOrderResponse(order domain.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineResponse{
			ProductID: line.ProductID,
			Qty:       line.Qty,
			Amount:    line.Amount.String(),
			Status:    line.Status,
		})
	}
	return orderResponse{
		ID:            order.ID,
		UserID:        order.UserID,
		Status:        order.Status,
		Type:          order.Type,
		PickupTime:    order.PickupTime,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Lines:         lines,
		Amount:        order.Payment.Amount.String(),
		Tax:           order.Payment.Tax.String(),
		Method:        string(order.Payment.Method),
		CreatedAt:     order.CreatedAt,
	}
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a decimal number"})
		return
	}
	tax := decimal.Zero
	if req.Tax != "" {
		tax, err = decimal.NewFromString(req.Tax)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tax must be a decimal number"})
			return
		}
	}

	lines := make([]checkout.CartLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		price, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unit_price must be a decimal number"})
			return
		}
		lines = append(lines, checkout.CartLine{
			ProductID: line.ProductID,
			Qty:       line.Qty,
			UnitPrice: price,
		})
	}

	order, err := s.deps.Checkout.CreateOrder(c.Request.Context(), checkout.CreateOrderInput{
		UserID:        claims.UserID,
		Lines:         lines,
		Amount:        amount,
		Tax:           tax,
		Method:        req.Method,
		Type:          req.Type,
		Address:       req.Address,
		PickupTime:    req.PickupTime,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (s *Server) handleListOrders(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	orders, err := s.deps.Checkout.ListOrders(c.Request.Context(), claims.UserID, 0)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderResponse(order))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (s *Server) handleListAllOrders(c *gin.Context) {
	orders, err := s.deps.Checkout.ListAllOrders(c.Request.Context(), 0)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderResponse(order))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

// getOrderAuthorized возвращает заказ, проверяя право доступа: покупатель
// видит только свои заказы, персонал и админ — любые.
func (s *Server) getOrderAuthorized(c *gin.Context) (domain.Order, bool) {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return domain.Order{}, false
	}

	order, err := s.deps.Checkout.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return domain.Order{}, false
	}

	if claims.Role == domain.RoleCustomer && order.UserID != claims.UserID {
		// Чужой заказ не раскрываем даже фактом существования.
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrOrderNotFound.Error()})
		return domain.Order{}, false
	}
	return order, true
}

func (s *Server) handleGetOrder(c *gin.Context) {
	order, ok := s.getOrderAuthorized(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleOrderTimeline(c *gin.Context) {
	order, ok := s.getOrderAuthorized(c)
	if !ok {
		return
	}

	events, err := s.deps.Checkout.Timeline(order.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) handleCancelOrder(c *gin.Context) {
	order, ok := s.getOrderAuthorized(c)
	if !ok {
		return
	}

	if err := s.deps.Checkout.CancelOrder(c.Request.Context(), order.ID); err != nil {
		respondError(c, err)
		return
	}

	updated, err := s.deps.Checkout.GetOrder(c.Request.Context(), order.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(updated))
}

func (s *Server) handleReturnLine(c *gin.Context) {
	err := s.deps.Checkout.CancelLine(c.Request.Context(), c.Param("id"), c.Param("productID"))
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := s.deps.Checkout.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(updated))
}

type createStaffRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleListStaff(c *gin.Context) {
	staff, err := s.deps.Auth.ListStaff(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]userResponse, 0, len(staff))
	for _, user := range staff {
		out = append(out, toUserResponse(user))
	}
	c.JSON(http.StatusOK, gin.H{"staff": out})
}

func (s *Server) handleCreateStaff(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.deps.Auth.Register(c.Request.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.RoleStaff,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleDeleteStaff(c *gin.Context) {
	if err := s.deps.Auth.DeleteStaff(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setDisabledRequest struct {
	Disabled *bool `json:"disabled" binding:"required"`
}

func (s *Server) handleSetUserDisabled(c *gin.Context) {
	var req setDisabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.deps.Auth.SetDisabled(c.Request.Context(), c.Param("id"), *req.Disabled); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
