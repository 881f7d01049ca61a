package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pez-pay/pez_pay/internal/identity"
)

// Handler exposes the login endpoints: the Google consent flow and the
// development email login.
type Handler struct {
	ids      *identity.Service
	issuer   *TokenIssuer
	provider Provider
	states   *StateStore
}

// NewHandler builds an auth handler. states may be nil when no Redis is
// configured (dev mode); state verification is skipped then.
func NewHandler(ids *identity.Service, issuer *TokenIssuer, provider Provider, states *StateStore) *Handler {
	return &Handler{ids: ids, issuer: issuer, provider: provider, states: states}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
}

// GoogleRedirect sends the browser to the provider's consent page with a
// single-use state nonce.
func (h *Handler) GoogleRedirect(c *fiber.Ctx) error {
	var (
		state string
		err   error
	)
	if h.states != nil {
		state, err = h.states.Issue(c.UserContext())
		if err != nil {
			return err
		}
	} else {
		state = uuid.NewString()
	}
	return c.Redirect(h.provider.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback verifies the state nonce, exchanges the code and signs the
// caller in, provisioning account and wallet on first contact.
func (h *Handler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return fiber.NewError(http.StatusBadRequest, "missing code")
	}
	if h.states != nil {
		ok, err := h.states.Consume(c.UserContext(), c.Query("state"))
		if err != nil {
			return err
		}
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "invalid state")
		}
	}

	profile, err := h.provider.Exchange(c.UserContext(), code)
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, "identity provider rejected the exchange")
	}
	return h.signIn(c, profile)
}

type devLoginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// DevLogin issues a token for a bare email. Registered only in dev
// environments.
func (h *Handler) DevLogin(c *fiber.Ctx) error {
	var req devLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email is required")
	}
	return h.signIn(c, Profile{Email: req.Email, Name: req.Name})
}

func (h *Handler) signIn(c *fiber.Ctx, profile Profile) error {
	user, err := h.ids.FindOrCreate(c.UserContext(), profile.Email, profile.GoogleID, profile.Name)
	if err != nil {
		return err
	}
	token, expiresIn, err := h.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
		UserID:      user.ID,
		Email:       user.Email,
	})
}
