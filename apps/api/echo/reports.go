package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/report"
)

type (
	reportApi struct {
		svc      *report.Service
		validate *validator.Validate
	}

	DeliverRequest struct {
		report.DeliveryRequest
		To []string `json:"to"`
	}

	StatusResponse struct {
		State   report.State `json:"state"`
		Message string       `json:"message"`
	}
)

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *report.Service, validate *validator.Validate) {
	api := reportApi{svc: svc, validate: validate}

	rg := g.Group("/reports", jwt, staffOnly)
	rg.POST("", api.generate)
	rg.GET("", api.query)
	rg.GET("/status", api.status)
	rg.GET("/:id", api.retrieve)
	rg.GET("/:id/export", api.export)
	rg.POST("/:id/deliver", api.deliver)
	rg.DELETE("/:id", api.destroy, adminOnly)
}

func (api *reportApi) generate(ctx echo.Context) error {
	var data report.GenerateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateRequest")
	}

	rep, err := api.svc.Generate(ctx.Request().Context(), data, nil)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rep)
}

func (api *reportApi) status(ctx echo.Context) error {
	state, msg := api.svc.Pipeline().State()
	return ctx.JSON(http.StatusOK, StatusResponse{State: state, Message: msg})
}

func (api *reportApi) query(ctx echo.Context) error {
	headers, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return err
	}
	if headers == nil {
		headers = []report.ArchiveHeader{}
	}
	return ctx.JSON(http.StatusOK, headers)
}

func (api *reportApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a.Report)
}

func (api *reportApi) export(ctx echo.Context) error {
	format, err := report.ParseFormat(ctx.QueryParam("format"))
	if err != nil {
		return err
	}
	r, err := api.svc.Export(ctx.Request().Context(), ctx.Param("id"), format)
	if err != nil {
		return err
	}
	return attachment(ctx, r.FileName, r.ContentType, r.Content)
}

func (api *reportApi) deliver(ctx echo.Context) error {
	var data DeliverRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DeliverRequest")
	}
	if err := api.validate.Struct(&data.DeliveryRequest); err != nil {
		return err
	}

	req := data.DeliveryRequest
	if req.Channel == report.ChannelEmail {
		to, err := parseRecipients(data.To)
		if err != nil {
			return err
		}
		req.To = to
	}

	res, err := api.svc.Deliver(ctx.Request().Context(), ctx.Param("id"), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *reportApi) destroy(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	if _, err := api.svc.Get(rctx, ctx.Param("id")); err != nil {
		return err
	}
	if err := api.svc.Delete(rctx, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
