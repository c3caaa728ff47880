package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/user"
)

type attendanceApi struct {
	svc *attendance.Service
}

func registerAttendanceAPI(g *echo.Group, auth authFunc, deps ServerDeps) {
	api := attendanceApi{svc: deps.AttendanceSvc}

	g.POST("/mark-attendance", api.mark, auth(user.RoleTeacher)...)
	g.GET("/student-report/:student_id", api.studentReport, auth(user.RoleAdmin, user.RoleTeacher)...)
	g.GET("/class-report/:class_grade/:month", api.classReport, auth(user.RoleAdmin, user.RoleTeacher)...)
}

// Handlers

func (api *attendanceApi) mark(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	var data attendance.MarkRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}

	if _, err = api.svc.MarkAttendance(ctx.Request().Context(), p, data); err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Attendance marked successfully"})
}

func (api *attendanceApi) studentReport(ctx echo.Context) error {
	id, ok := pathParamID(ctx, "student_id")
	if !ok {
		return errHttpNotFound
	}

	report, err := api.svc.StudentReport(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "building student report")
	}
	return ctx.JSON(http.StatusOK, StudentReportResponse{
		Attendances: report.Attendances,
		Summary:     report.Totals.String(),
		Totals:      report.Totals,
	})
}

func (api *attendanceApi) classReport(ctx echo.Context) error {
	report, err := api.svc.ClassReport(ctx.Request().Context(), pathParam(ctx, "class_grade"), ctx.Param("month"))
	if err != nil {
		return errors.Wrap(err, "building class report")
	}
	return ctx.JSON(http.StatusOK, report)
}

type StudentReportResponse struct {
	Attendances []attendance.DayStatus   `json:"attendances"`
	Summary     string                   `json:"summary"`
	Totals      attendance.StudentTotals `json:"totals"`
}
