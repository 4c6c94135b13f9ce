package auth

import (
	"errors"
	"fmt"
	"net/url"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-print"
)

// Severity of a response message
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Completion status of a login response
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Message is a user facing note attached to a login response
type Message struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field,omitempty"`
	Text     string   `json:"text"`
}

// LoginResponse is the body returned by the login endpoints. Token fields
// are empty unless Status is complete. Exp encodes as whole seconds since
// epoch, same as the token's exp claim.
type LoginResponse struct {
	Login    string           `json:"login,omitempty"`
	Name     string           `json:"name,omitempty"`
	Admin    bool             `json:"admin"`
	Exp      *jwt.NumericDate `json:"exp,omitempty"`
	JWT      string           `json:"jwt,omitempty"`
	Status   string           `json:"status"`
	Messages []Message        `json:"messages"`
}

// LoginRequest payload
type LoginRequest struct {
	Login string `form:"login" json:"login"`
	Creds string `form:"creds" json:"creds"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Login, validation.Required, validation.By(notBlank)),
		validation.Field(&r.Creds, validation.Required, validation.By(notBlank)),
	)
}

type SessionControllerRoutes struct {
	Login string
}

type SessionController struct {
	Debug  bool
	Logger Logger
	Issuer *Issuer
	Routes *SessionControllerRoutes
}

type SessionControllerOption func(*SessionController) *SessionController

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerDebug dumps incoming login payloads, credentials excluded.
func WithControllerDebug(debug bool) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Debug = debug
		return c
	}
}

// WithLoginRoute changes the login path relative to the group, "/login" by default.
func WithLoginRoute(path string) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if path != "" {
			c.Routes.Login = path
		}
		return c
	}
}

func NewSessionController(issuer *Issuer, opts ...SessionControllerOption) *SessionController {
	c := &SessionController{
		Logger: defLogger{},
		Issuer: issuer,
		Routes: &SessionControllerRoutes{
			Login: "/login",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Issuer == nil {
		panic("Missing Issuer in session controller...")
	}

	return c
}

// RegisterSessionRoutes mounts the login endpoints on router:
//
//	GET  <login>/:login/creds/:creds
//	POST <login>
func RegisterSessionRoutes(router fiber.Router, issuer *Issuer, opts ...SessionControllerOption) *SessionController {
	controller := NewSessionController(issuer, opts...)

	router.Get(controller.Routes.Login+"/:login/creds/:creds", controller.LoginGet).
		Name("session.login.get")
	router.Post(controller.Routes.Login, controller.LoginPost).
		Name("session.login.post")

	return controller
}

// LoginGet issues a token from path parameters
func (a *SessionController) LoginGet(ctx *fiber.Ctx) error {
	payload := LoginRequest{
		Login: pathParam(ctx, "login"),
		Creds: pathParam(ctx, "creds"),
	}
	return a.login(ctx, payload)
}

// LoginPost issues a token from a JSON or form body
func (a *SessionController) LoginPost(ctx *fiber.Ctx) error {
	payload := LoginRequest{}
	if err := ctx.BodyParser(&payload); err != nil {
		a.Logger.Debug("login post: unable to parse body: %v", err)
		return ctx.Status(fiber.StatusBadRequest).JSON(LoginResponse{
			Status: StatusFailed,
			Messages: []Message{
				{Severity: SeverityError, Text: "unable to parse request body"},
			},
		})
	}
	return a.login(ctx, payload)
}

func (a *SessionController) login(ctx *fiber.Ctx, payload LoginRequest) error {
	if a.Debug {
		fmt.Println("======= SESSION LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(map[string]string{"login": payload.Login}))
		fmt.Println("============================")
	}

	if err := payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(LoginResponse{
			Login:    payload.Login,
			Status:   StatusFailed,
			Messages: validationMessages(err),
		})
	}

	issued, err := a.Issuer.Issue(ctx.UserContext(), payload.Login, payload.Creds)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(LoginResponse{
				Login:  payload.Login,
				Status: StatusFailed,
				Messages: []Message{
					{Severity: SeverityError, Text: ErrInvalidCredentials.Message},
				},
			})
		}

		a.Logger.Error("login failed for %s: %v", payload.Login, err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(LoginResponse{
			Login:  payload.Login,
			Status: StatusFailed,
			Messages: []Message{
				{Severity: SeverityError, Text: "internal server error"},
			},
		})
	}

	claims := issued.Claims
	return ctx.Status(fiber.StatusOK).JSON(LoginResponse{
		Login:  claims.Login(),
		Name:   claims.DisplayName(),
		Admin:  claims.Admin(),
		Exp:    claims.NumericExpiration(),
		JWT:    issued.Token,
		Status: StatusComplete,
		Messages: []Message{
			{Severity: SeverityInfo, Text: "login successful"},
		},
	})
}

func pathParam(ctx *fiber.Ctx, name string) string {
	raw := ctx.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func validationMessages(err error) []Message {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return []Message{{Severity: SeverityError, Text: err.Error()}}
	}

	fields := make([]string, 0, len(verrs))
	for field := range verrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]Message, 0, len(fields))
	for _, field := range fields {
		out = append(out, Message{
			Severity: SeverityError,
			Field:    field,
			Text:     verrs[field].Error(),
		})
	}
	return out
}
