package api

import (
	"github.com/example/catalog-engine/domain/catalog"
	"github.com/example/catalog-engine/modules/interaction"
	"github.com/example/catalog-engine/modules/inventory"
	"github.com/example/catalog-engine/modules/ledger"
	"github.com/gofiber/fiber/v2"
)

func (m *Module) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	api := app.Group("/api/v1")

	products := api.Group("/products")
	products.Post("/", m.createProduct)
	products.Get("/", m.listProducts)
	products.Get("/:id", m.getProduct)
	products.Patch("/:id", m.updateProduct)
	products.Delete("/:id", m.deleteProduct)

	free := api.Group("/free-items")
	free.Post("/", m.createFreeItem)
	free.Get("/", m.listFreeItems)
	free.Delete("/:id", m.deleteFreeItem)

	carts := api.Group("/carts")
	carts.Get("/", m.listCarts)
	carts.Delete("/:userId", m.clearCart)

	purchases := api.Group("/purchases")
	purchases.Post("/", m.createPurchase)
	purchases.Get("/", m.listPurchases)
	purchases.Get("/:id", m.getPurchase)

	projects := api.Group("/projects")
	projects.Post("/", m.createProject)
	projects.Get("/", m.listProjects)
	projects.Delete("/:id", m.deleteProject)

	api.Post("/interactions", m.interact)
}

// healthHandler handles GET /health.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	resp := HealthResponse{Status: "healthy", Modules: make(map[string]ModuleHealth, len(m.reporters))}
	for _, r := range m.reporters {
		h := r.Health(c.Context())
		resp.Modules[r.Name()] = ModuleHealth{Healthy: h.Healthy, Message: h.Message, Details: h.Details}
		if !h.Healthy {
			resp.Status = "degraded"
		}
	}

	status := fiber.StatusOK
	if resp.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(resp)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request body",
	})
}

// createProduct handles POST /api/v1/products.
func (m *Module) createProduct(c *fiber.Ctx) error {
	var req CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	p, err := m.inventory.AddProduct(c.Context(), inventory.AddProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Image:       req.Image,
	})
	if err != nil {
		return m.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// listProducts handles GET /api/v1/products.
func (m *Module) listProducts(c *fiber.Ctx) error {
	products, err := m.inventory.ListProducts(c.Context())
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(ListResponse{Items: products, Total: len(products)})
}

// getProduct handles GET /api/v1/products/:id.
func (m *Module) getProduct(c *fiber.Ctx) error {
	p, err := m.inventory.GetProduct(c.Context(), c.Params("id"))
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(p)
}

// updateProduct handles PATCH /api/v1/products/:id.
func (m *Module) updateProduct(c *fiber.Ctx) error {
	var req UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	p, err := m.inventory.UpdateProduct(c.Context(), c.Params("id"), catalog.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Image:       req.Image,
	})
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(p)
}

// deleteProduct handles DELETE /api/v1/products/:id.
func (m *Module) deleteProduct(c *fiber.Ctx) error {
	p, err := m.inventory.RemoveProduct(c.Context(), c.Params("id"))
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(p)
}

// createFreeItem handles POST /api/v1/free-items.
func (m *Module) createFreeItem(c *fiber.Ctx) error {
	var req CreateFreeItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	f, err := m.inventory.AddFreeItem(c.Context(), inventory.AddFreeItemInput{
		Name:        req.Name,
		Description: req.Description,
		Link:        req.Link,
		Stock:       req.Stock,
		Image:       req.Image,
	})
	if err != nil {
		return m.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(f)
}

// listFreeItems handles GET /api/v1/free-items.
func (m *Module) listFreeItems(c *fiber.Ctx) error {
	items, err := m.inventory.ListFreeItems(c.Context())
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(ListResponse{Items: items, Total: len(items)})
}

// deleteFreeItem handles DELETE /api/v1/free-items/:id.
func (m *Module) deleteFreeItem(c *fiber.Ctx) error {
	f, err := m.inventory.RemoveFreeItem(c.Context(), c.Params("id"))
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(f)
}

// listCarts handles GET /api/v1/carts.
func (m *Module) listCarts(c *fiber.Ctx) error {
	carts, err := m.inventory.ListCarts(c.Context())
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(ListResponse{Items: carts, Total: len(carts)})
}

// clearCart handles DELETE /api/v1/carts/:userId.
func (m *Module) clearCart(c *fiber.Ctx) error {
	userID := c.Params("userId")
	removed, err := m.inventory.ClearCart(c.Context(), userID)
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(ClearCartResponse{UserID: userID, Removed: removed})
}

// createPurchase handles POST /api/v1/purchases.
func (m *Module) createPurchase(c *fiber.Ctx) error {
	var req CreatePurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	rec, err := m.ledger.RecordPurchase(c.Context(), ledger.RecordPurchaseInput{
		BuyerID:            req.BuyerID,
		ProductDescription: req.ProductDescription,
		Amount:             req.Amount,
		Note:               req.Note,
		RecordedBy:         "api",
	})
	if err != nil {
		return m.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// listPurchases handles GET /api/v1/purchases.
func (m *Module) listPurchases(c *fiber.Ctx) error {
	records, err := m.ledger.ListPurchases(c.Context())
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(ListResponse{Items: records, Total: len(records)})
}

// getPurchase handles GET /api/v1/purchases/:id.
func (m *Module) getPurchase(c *fiber.Ctx) error {
	rec, err := m.ledger.GetPurchase(c.Context(), c.Params("id"))
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(rec)
}

// createProject handles POST /api/v1/projects.
func (m *Module) createProject(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	p, err := m.inventory.AddProject(c.Context(), inventory.AddProjectInput{
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
		Image:       req.Image,
		Client:      req.Client,
	})
	if err != nil {
		return m.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// listProjects handles GET /api/v1/projects.
func (m *Module) listProjects(c *fiber.Ctx) error {
	projects, err := m.inventory.ListProjects(c.Context())
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(ListResponse{Items: projects, Total: len(projects)})
}

// deleteProject handles DELETE /api/v1/projects/:id.
func (m *Module) deleteProject(c *fiber.Ctx) error {
	p, err := m.inventory.RemoveProject(c.Context(), c.Params("id"))
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(p)
}

// interact handles POST /api/v1/interactions. The reply is always 200;
// the outcome is carried in the body.
func (m *Module) interact(c *fiber.Ctx) error {
	var req InteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "user_id is required",
		})
	}

	resp, err := m.interaction.Dispatch(c.Context(), interaction.Click{Token: req.Token, UserID: req.UserID})
	if err != nil {
		return m.fail(c, err)
	}
	return c.JSON(resp)
}
