package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/grading"
)

type (
	gradingApi struct {
		svc      *academic.Service
		validate *validator.Validate
	}

	GPARequest struct {
		Courses []academic.NewCourse `json:"courses" validate:"required,min=1,dive"`
	}

	GPAResponse struct {
		Courses      []grading.Course `json:"courses"`
		GPA          float64          `json:"gpa"`
		TotalCredits float64          `json:"total_credits"`
		Tier         grading.Tier     `json:"tier"`
	}

	SemesterRequest struct {
		Name    string               `json:"name" validate:"max=128,label"`
		Courses []academic.NewCourse `json:"courses" validate:"required,min=1,dive"`
	}

	CGPARequest struct {
		Strategy  string            `json:"strategy" validate:"omitempty,oneof=historical single"`
		Semesters []SemesterRequest `json:"semesters" validate:"required,min=1,dive"`
	}

	SemesterResult struct {
		Name    string           `json:"name"`
		GPA     float64          `json:"gpa"`
		Courses []grading.Course `json:"courses"`
	}

	CGPAResponse struct {
		Semesters []SemesterResult     `json:"semesters"`
		CGPA      float64              `json:"cgpa"`
		Strategy  grading.CGPAStrategy `json:"strategy"`
	}
)

func registerGradingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *academic.Service, validate *validator.Validate) {
	api := gradingApi{svc: svc, validate: validate}

	gg := g.Group("/grading", jwt)
	gg.GET("/scale", api.scale)
	gg.POST("/gpa", api.gpa)
	gg.POST("/cgpa", api.cgpa)
}

func toCourses(in []academic.NewCourse) []grading.Course {
	courses := make([]grading.Course, 0, len(in))
	for _, c := range in {
		courses = append(courses, grading.Course{Name: core.CleanString(c.Name), Marks: c.Marks, Credits: c.Credits})
	}
	return grading.GradeCourses(courses)
}

func (api *gradingApi) scale(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, grading.Bands())
}

func (api *gradingApi) gpa(ctx echo.Context) error {
	var data GPARequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GPARequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	courses := toCourses(data.Courses)
	gpa := grading.ComputeGPA(courses)
	return ctx.JSON(http.StatusOK, GPAResponse{
		Courses:      courses,
		GPA:          gpa,
		TotalCredits: grading.TotalCredits(courses),
		Tier:         grading.TierFor(gpa),
	})
}

func (api *gradingApi) cgpa(ctx echo.Context) error {
	var data CGPARequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CGPARequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	strategy := api.svc.Strategy()
	if data.Strategy != "" {
		strategy = grading.CGPAStrategy(data.Strategy)
	}

	semesters := make([]grading.Semester, 0, len(data.Semesters))
	results := make([]SemesterResult, 0, len(data.Semesters))
	for _, s := range data.Semesters {
		sem := grading.Semester{Name: core.CleanString(s.Name), Courses: toCourses(s.Courses)}
		semesters = append(semesters, sem)
		results = append(results, SemesterResult{Name: sem.Name, GPA: sem.GPA(), Courses: sem.Courses})
	}
	return ctx.JSON(http.StatusOK, CGPAResponse{
		Semesters: results,
		CGPA:      grading.CGPA(strategy, semesters),
		Strategy:  strategy,
	})
}
