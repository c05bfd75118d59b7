package auth

import (
	stderrors "errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// HTTPController exposes the engine as a JSON API.
type HTTPController struct {
	Logger Logger
	Engine *Engine
	Config Config
}

type HTTPControllerOption func(*HTTPController) *HTTPController

func NewHTTPController(engine *Engine, cfg Config, opts ...HTTPControllerOption) *HTTPController {
	c := &HTTPController{
		Logger: defLogger{},
		Engine: engine,
		Config: cfg,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Engine == nil {
		panic("Missing Engine in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Logger = logger
		return c
	}
}

// RegisterRoutes mounts the public auth surface and the account
// management routes on the app.
func RegisterRoutes(app *fiber.App, controller *HTTPController) {
	requireAuth := RequireAuth(controller.Engine.TokenService())
	requireAdmin := RequireRole(RoleAdmin)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", controller.Register)
	authGroup.Post("/verify-email", controller.VerifyEmail)
	authGroup.Post("/login", controller.Login)
	authGroup.Post("/refresh", controller.Refresh)
	authGroup.Post("/forgot-password", controller.ForgotPassword)
	authGroup.Post("/reset-password", controller.ResetPassword)
	authGroup.Post("/logout", controller.Logout)
	authGroup.Get("/me", requireAuth, controller.Me)

	users := app.Group("/users")
	users.Put("/password", requireAuth, controller.ChangePassword)
	users.Put("/profile", requireAuth, controller.UpdateProfile)
	users.Get("/", requireAuth, requireAdmin, controller.ListAccounts)
	users.Get("/statistics", requireAuth, requireAdmin, controller.Statistics)
	users.Put("/:id/role", requireAuth, requireAdmin, controller.UpdateRole)
	users.Delete("/:id", requireAuth, requireAdmin, controller.Deactivate)
}

// RegisterPayload is the registration request body
type RegisterPayload struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Phone           string `json:"phone_number"`
	Country         string `json:"country"`
	Locale          string `json:"locale"`
}

// Validate will validate the payload
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber(r.Country))),
		validation.Field(&r.Country, validation.Length(2, 2)),
	)
}

func (a *HTTPController) Register(c *fiber.Ctx) error {
	payload := new(RegisterPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return renderValidationError(c, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(c, err)
	}

	result, err := a.Engine.Register(c.Context(), RegisterInput{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
		Country:   payload.Country,
		Locale:    payload.Locale,
	}, requestMeta(c))
	if err != nil {
		return renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      result.ID,
		"email":   result.Email,
		"message": "Verification code sent",
	})
}

// VerifyEmailPayload is the email verification request body
type VerifyEmailPayload struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// Validate will validate the payload
func (r VerifyEmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.OTP, validation.Required, validation.Length(4, 10), is.Digit),
	)
}

func (a *HTTPController) VerifyEmail(c *fiber.Ctx) error {
	payload := new(VerifyEmailPayload)

	if err := c.BodyParser(payload); err != nil {
		return renderValidationError(c, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(c, err)
	}

	result, err := a.Engine.VerifyEmail(c.Context(), payload.Email, payload.OTP, requestMeta(c))
	if err != nil {
		return renderError(c, err)
	}

	setRefreshCookie(c, a.Config, result.RefreshToken, result.RefreshExpiresAt)

	return c.JSON(result)
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *HTTPController) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		return renderValidationError(c, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(c, err)
	}

	result, err := a.Engine.Login(c.Context(), payload.Email, payload.Password, requestMeta(c))
	if err != nil {
		return renderError(c, err)
	}

	setRefreshCookie(c, a.Config, result.RefreshToken, result.RefreshExpiresAt)

	return c.JSON(result)
}

// RefreshPayload is the token refresh request body. The token can
// also arrive through the refresh cookie.
type RefreshPayload struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *HTTPController) Refresh(c *fiber.Ctx) error {
	payload := new(RefreshPayload)
	_ = c.BodyParser(payload)

	token := payload.RefreshToken
	if token == "" {
		token = c.Cookies(a.Config.CookieName)
	}

	result, err := a.Engine.Refresh(c.Context(), token)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(result)
}

// ForgotPasswordPayload is the forgot password request body
type ForgotPasswordPayload struct {
	Email string `json:"email"`
}

// Validate will validate the payload
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *HTTPController) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		return renderValidationError(c, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(c, err)
	}

	ack, err := a.Engine.ForgotPassword(c.Context(), payload.Email, requestMeta(c))
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(fiber.Map{"message": ack})
}

// ResetPasswordPayload is the reset password request body
type ResetPasswordPayload struct {
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate will validate the payload
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.OTP, validation.Required, validation.Length(4, 10), is.Digit),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *HTTPController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		return renderValidationError(c, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(c, err)
	}

	if err := a.Engine.ResetPassword(c.Context(), payload.Email, payload.OTP, payload.Password, requestMeta(c)); err != nil {
		return renderError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated"})
}

// LogoutPayload is the logout request body. The token can also arrive
// through the refresh cookie.
type LogoutPayload struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *HTTPController) Logout(c *fiber.Ctx) error {
	payload := new(LogoutPayload)
	_ = c.BodyParser(payload)

	token := payload.RefreshToken
	if token == "" {
		token = c.Cookies(a.Config.CookieName)
	}

	var actorID *uuid.UUID
	if raw := bearerToken(c); raw != "" {
		if claims, err := a.Engine.TokenService().Validate(raw); err == nil {
			if id, err := claims.AccountID(); err == nil {
				actorID = &id
			}
		}
	}

	if err := a.Engine.Logout(c.Context(), token, actorID, requestMeta(c)); err != nil {
		return renderError(c, err)
	}

	clearRefreshCookie(c, a.Config)

	return c.JSON(fiber.Map{"message": "Logged out"})
}

func (a *HTTPController) Me(c *fiber.Ctx) error {
	account, err := a.Engine.CurrentAccount(c.Context(), ClaimsFromContext(c))
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(account)
}

// ChangePasswordPayload is the change password request body
type ChangePasswordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate will validate the payload
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(10, 100)),
	)
}

func (a *HTTPController) ChangePassword(c *fiber.Ctx) error {
	payload := new(ChangePasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		return renderValidationError(c, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(c, err)
	}

	actorID := actorIDFromContext(c)
	if actorID == nil {
		return renderError(c, ErrUnauthorized)
	}

	if err := a.Engine.ChangePassword(c.Context(), *actorID, payload.CurrentPassword, payload.NewPassword, requestMeta(c)); err != nil {
		return renderError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated"})
}

// UpdateProfilePayload is the profile update request body
type UpdateProfilePayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone_number"`
	Country   string `json:"country"`
	Locale    string `json:"locale"`
	AvatarURL string `json:"avatar_url"`
}

// Validate will validate the payload
func (r UpdateProfilePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber(r.Country))),
		validation.Field(&r.AvatarURL, is.URL),
	)
}

func (a *HTTPController) UpdateProfile(c *fiber.Ctx) error {
	payload := new(UpdateProfilePayload)

	if err := c.BodyParser(payload); err != nil {
		return renderValidationError(c, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(c, err)
	}

	actorID := actorIDFromContext(c)
	if actorID == nil {
		return renderError(c, ErrUnauthorized)
	}

	account, err := a.Engine.UpdateProfile(c.Context(), *actorID, ProfileUpdate{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
		Country:   payload.Country,
		Locale:    payload.Locale,
		AvatarURL: payload.AvatarURL,
	})
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(account)
}

func (a *HTTPController) ListAccounts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	records, total, err := a.Engine.ListAccounts(c.Context(), limit, offset)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"accounts": records,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (a *HTTPController) Statistics(c *fiber.Ctx) error {
	stats, err := a.Engine.AccountStatistics(c.Context())
	if err != nil {
		return renderError(c, err)
	}
	return c.JSON(stats)
}

// UpdateRolePayload is the role update request body
type UpdateRolePayload struct {
	Role string `json:"role"`
}

// Validate will validate the payload
func (r UpdateRolePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.In(
			string(RoleStandard),
			string(RoleAdmin),
		)),
	)
}

func (a *HTTPController) UpdateRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return renderValidationError(c, err)
	}

	payload := new(UpdateRolePayload)
	if err := c.BodyParser(payload); err != nil {
		return renderValidationError(c, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(c, err)
	}

	actorID := actorIDFromContext(c)
	if actorID == nil {
		return renderError(c, ErrUnauthorized)
	}

	account, err := a.Engine.UpdateRole(c.Context(), *actorID, id, Role(payload.Role), requestMeta(c))
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(account)
}

func (a *HTTPController) Deactivate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return renderValidationError(c, err)
	}

	actorID := actorIDFromContext(c)
	if actorID == nil {
		return renderError(c, ErrUnauthorized)
	}

	if err := a.Engine.Deactivate(c.Context(), *actorID, id, requestMeta(c)); err != nil {
		return renderError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return stderrors.New("values must match")
		}
		return nil
	}
}

// ValidatePhoneNumber parses the value as a phone number for the
// given ISO region. Empty values pass; required-ness is a separate
// rule.
func ValidatePhoneNumber(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if region == "" {
			region = "US"
		}
		num, err := phonenumbers.Parse(s, region)
		if err != nil {
			return stderrors.New("invalid phone number")
		}
		if !phonenumbers.IsValidNumber(num) {
			return stderrors.New("invalid phone number")
		}
		return nil
	}
}
