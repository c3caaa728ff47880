package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
)

type studentApi struct {
	svc *student.Service
}

func registerStudentAPI(g *echo.Group, auth authFunc, deps ServerDeps) {
	api := studentApi{svc: deps.StudentSvc}

	g.POST("/register-student", api.register("Student registered successfully"), auth(user.RoleAdmin)...)
	g.POST("/students/add", api.register("Student added successfully"), auth(user.RoleAdmin)...)
	g.GET("/students", api.query, auth(user.RoleAdmin, user.RoleTeacher)...)
	g.GET("/students-by-class/:class", api.queryByClass, auth(user.RoleTeacher)...)
}

// Handlers

func (api *studentApi) register(successMsg string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data student.NewStudent
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewStudent")
		}

		st, err := api.svc.Register(ctx.Request().Context(), data)
		if err != nil {
			return errors.Wrap(err, "registering student")
		}
		return ctx.JSON(http.StatusCreated, StudentResponse{Message: successMsg, Student: st})
	}
}

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, nonNil(students))
}

func (api *studentApi) queryByClass(ctx echo.Context) error {
	students, err := api.svc.QueryByClass(ctx.Request().Context(), pathParam(ctx, "class"))
	if err != nil {
		return errors.Wrap(err, "querying students by class")
	}
	return ctx.JSON(http.StatusOK, nonNil(students))
}

func nonNil(students []student.Student) []student.Student {
	if students == nil {
		return []student.Student{}
	}
	return students
}

type StudentResponse struct {
	Message string          `json:"message"`
	Student student.Student `json:"student"`
}
