package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/academic"
	"github.com/trezcool/alama/core/report"
)

type (
	recordApi struct {
		svc      *academic.Service
		validate *validator.Validate
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func registerRecordAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *academic.Service, validate *validator.Validate) {
	api := recordApi{svc: svc, validate: validate}

	sg := g.Group("/students-records", jwt, staffOnly)
	sg.GET("", api.query)
	sg.GET("/semesters", api.semesters)
	sg.GET("/export", api.export)

	rg := g.Group("/gpa-records", jwt, staffOnly)
	rg.POST("", api.create)
	rg.DELETE("", api.destroyMultiple, adminOnly)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update)
	rg.DELETE("/:id", api.destroy, adminOnly)
}

func (api *recordApi) bindQuery(ctx echo.Context) ([]academic.Record, error) {
	filter := new(academic.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	records, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []academic.Record{}
	}
	return records, nil
}

func (api *recordApi) query(ctx echo.Context) error {
	records, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *recordApi) semesters(ctx echo.Context) error {
	semesters, err := api.svc.Semesters(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, semesters)
}

// export downloads the filtered records as CSV, text or JSON.
func (api *recordApi) export(ctx echo.Context) error {
	format, err := report.ParseFormat(ctx.QueryParam("format"))
	if err != nil {
		return err
	}
	records, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}

	now := academic.NowFunc().UTC()
	var buf bytes.Buffer
	switch format {
	case report.FormatCSV:
		err = report.WriteCSV(&buf, records)
	case report.FormatText:
		err = report.WriteText(&buf, records, now)
	default:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(records)
	}
	if err != nil {
		return errors.Wrap(err, "exporting records")
	}
	return attachment(ctx, format.FileName(now), format.ContentType(), buf.Bytes())
}

func (api *recordApi) create(ctx echo.Context) error {
	var data academic.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.Save(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *recordApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) update(ctx echo.Context) error {
	var data academic.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) destroy(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	rec, err := api.svc.Get(rctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.svc.Delete(rctx, rec.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *recordApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func attachment(ctx echo.Context, filename, contentType string, content []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, contentType, content)
}
