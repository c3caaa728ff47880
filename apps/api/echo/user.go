package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

type userApi struct {
	conf     *core.Config
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, auth authFunc, deps ServerDeps) {
	api := userApi{
		conf:     deps.Conf,
		svc:      deps.UserSvc,
		validate: deps.Validate,
	}

	// TODO: rate limit `/login`
	g.POST("/login", api.login)
	g.POST("/logout", api.logout, auth()...)

	g.POST("/register-teacher", api.registerTeacher, auth(user.RoleAdmin)...)
	g.GET("/teachers", api.queryTeachers, auth(user.RoleAdmin)...)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := issueToken(ctx.Request().Context(), api.conf, api.svc, usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *userApi) logout(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	if err = api.svc.Logout(ctx.Request().Context(), p); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}

func (api *userApi) registerTeacher(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	usr, err := api.svc.RegisterTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering teacher")
	}
	return ctx.JSON(http.StatusCreated, TeacherResponse{Message: "Teacher registered successfully", Teacher: usr})
}

func (api *userApi) queryTeachers(ctx echo.Context) error {
	teachers, err := api.svc.QueryTeachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []user.User{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}

	TeacherResponse struct {
		Message string    `json:"message"`
		Teacher user.User `json:"teacher"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
