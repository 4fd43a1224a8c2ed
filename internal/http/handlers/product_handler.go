package handlers

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	"oakmart/internal/domain"
	applog "oakmart/internal/log"
	"oakmart/internal/services"
	"oakmart/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.Catalog.List()
	if err != nil {
		return err
	}
	return c.JSON(products)
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "product not found")
	}
	p, err := h.Catalog.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return fail(c, fiber.StatusNotFound, "product not found")
		}
		return err
	}
	return c.JSON(p)
}

func (h *ProductHandler) Availability(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "product not found")
	}
	a, err := h.Catalog.Availability(id)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return fail(c, fiber.StatusNotFound, "product not found")
		}
		return err
	}
	return c.JSON(a)
}

type comboPayload struct {
	ID     string         `json:"id"`
	Values map[string]any `json:"values"`
	Stock  int            `json:"stock"`
	Price  float64        `json:"price"`
}

type productPayload struct {
	Name         string             `json:"name"`
	Slug         string             `json:"slug"`
	Description  string             `json:"description"`
	Category     string             `json:"category"`
	Price        float64            `json:"price"`
	Stock        int                `json:"stock"`
	Featured     bool               `json:"featured"`
	Rating       float64            `json:"rating"`
	Reviews      int                `json:"reviews"`
	Attributes   []domain.Attribute `json:"attributes"`
	Combinations []comboPayload     `json:"combinations"`
}

func (p productPayload) check() []string {
	var msgs []string
	if _, ok := validate.Name(p.Name); !ok {
		msgs = append(msgs, `"name" is required`)
	}
	if p.Description == "" {
		msgs = append(msgs, `"description" is required`)
	}
	if p.Category == "" {
		msgs = append(msgs, `"category" is required`)
	}
	if p.Price < 0 {
		msgs = append(msgs, `"price" must be greater than or equal to 0`)
	}
	if p.Stock < 0 {
		msgs = append(msgs, `"stock" must be greater than or equal to 0`)
	}
	if p.Slug != "" {
		if _, ok := validate.Slug(p.Slug); !ok {
			msgs = append(msgs, `"slug" must be a lowercase hyphenated identifier`)
		}
	}
	for _, combo := range p.Combinations {
		if combo.Stock < 0 {
			msgs = append(msgs, `"combinations" stock must be greater than or equal to 0`)
			break
		}
	}
	return msgs
}

func (p productPayload) toDomain(id string) *domain.Product {
	slug := p.Slug
	if slug == "" {
		slug = slugify(p.Name)
	}
	combos := make([]domain.Combination, len(p.Combinations))
	for i, cp := range p.Combinations {
		combos[i] = domain.Combination{
			ID:     cp.ID,
			Values: domain.NormalizeVariantValues(cp.Values),
			Stock:  cp.Stock,
			Price:  cp.Price,
		}
	}
	return &domain.Product{
		ID:           id,
		Slug:         slug,
		Name:         strings.TrimSpace(p.Name),
		Description:  p.Description,
		Category:     p.Category,
		Price:        p.Price,
		Stock:        p.Stock,
		Featured:     p.Featured,
		Rating:       p.Rating,
		Reviews:      p.Reviews,
		Attributes:   p.Attributes,
		Combinations: combos,
	}
}

var reNonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := reNonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(s, "-")
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var p productPayload
	if err := c.BodyParser(&p); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msgs := p.check(); len(msgs) > 0 {
		applog.Security(c, "validation.fail", map[string]any{"route": "product.create"})
		return fail(c, fiber.StatusBadRequest, strings.Join(msgs, ", "))
	}

	created, err := h.Catalog.Create(p.toDomain(""))
	if err != nil {
		return err
	}
	applog.Audit(c, "product.create", map[string]any{"product": created.ID})
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "product not found")
	}
	var p productPayload
	if err := c.BodyParser(&p); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msgs := p.check(); len(msgs) > 0 {
		applog.Security(c, "validation.fail", map[string]any{"route": "product.update"})
		return fail(c, fiber.StatusBadRequest, strings.Join(msgs, ", "))
	}

	updated, err := h.Catalog.Update(p.toDomain(id))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return fail(c, fiber.StatusNotFound, "product not found")
		}
		return err
	}
	applog.Audit(c, "product.update", map[string]any{"product": id})
	return c.JSON(updated)
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "product not found")
	}
	if err := h.Catalog.Delete(id); err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return fail(c, fiber.StatusNotFound, "product not found")
		}
		return err
	}
	applog.Audit(c, "product.delete", map[string]any{"product": id})
	return c.JSON(fiber.Map{"message": "product removed"})
}
