package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"oakmart/internal/domain"
	applog "oakmart/internal/log"
	"oakmart/internal/services"
	"oakmart/internal/validate"
)

type AuthHandler struct {
	Auth *services.AuthService
}

type registerPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var p registerPayload
	if err := c.BodyParser(&p); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	var msgs []string
	name, ok := validate.Name(p.Name)
	if !ok {
		msgs = append(msgs, `"name" must be at least 3 characters`)
	}
	email, ok := validate.Email(p.Email)
	if !ok {
		msgs = append(msgs, `"email" must be a valid email`)
	}
	if !validate.Password(p.Password) {
		msgs = append(msgs, `"password" must be at least 6 characters`)
	}
	if len(msgs) > 0 {
		applog.Security(c, "validation.fail", map[string]any{"route": "register"})
		return fail(c, fiber.StatusBadRequest, strings.Join(msgs, ", "))
	}

	u, err := h.Auth.Register(ensureSID(c), name, email, p.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		return err
	}

	applog.Audit(c, "auth.register", map[string]any{"email": email})
	return c.Status(fiber.StatusCreated).JSON(u)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var p loginPayload
	if err := c.BodyParser(&p); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}

	email, ok := validate.Email(p.Email)
	if !ok || p.Password == "" {
		applog.Security(c, "auth.login.fail", map[string]any{"email": p.Email, "reason": "bad_format"})
		return fail(c, fiber.StatusUnauthorized, services.ErrBadCreds.Error())
	}

	u, err := h.Auth.Login(ensureSID(c), email, p.Password)
	if err != nil {
		applog.Security(c, "auth.login.fail", map[string]any{"email": email})
		return fail(c, fiber.StatusUnauthorized, services.ErrBadCreds.Error())
	}

	applog.Audit(c, "auth.login.success", map[string]any{"email": email})
	return c.JSON(u)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	_ = h.Auth.Logout(sid)
	// Expire cookie
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	applog.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.JSON(fiber.Map{"message": "logged out"})
}

// Me returns the current principal (set by RequireUser).
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return fail(c, fiber.StatusUnauthorized, "not authorized")
	}
	return c.JSON(u)
}
