package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-donations/app/backend"
	"github.com/vibast-solutions/ms-go-donations/app/factory"
	"github.com/vibast-solutions/ms-go-donations/app/flow"
	"github.com/vibast-solutions/ms-go-donations/app/mapper"
	"github.com/vibast-solutions/ms-go-donations/app/service"
	"github.com/vibast-solutions/ms-go-donations/app/types"
)

type DonationController struct {
	donationService *service.DonationService
	logger          logrus.FieldLogger
}

func NewDonationController(donationService *service.DonationService) *DonationController {
	return &DonationController{
		donationService: donationService,
		logger:          factory.NewModuleLogger("donations-controller"),
	}
}

func (c *DonationController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *DonationController) CreateDonation(ctx echo.Context) error {
	req, err := types.NewCreateDonationRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if errs := req.Validate(); len(errs) > 0 {
		return ctx.JSON(http.StatusBadRequest, &types.FieldErrorsResponse{
			Error:  "validation failed",
			Fields: errs,
		})
	}

	var flowItem *flow.Flow
	switch req.Type {
	case types.DonationTypeMonthly:
		flowItem, err = c.donationService.SubmitMonthly(ctx.Request().Context(), req)
	default:
		flowItem, err = c.donationService.SubmitInstant(ctx.Request().Context(), req)
	}
	if err != nil {
		return c.writeFailure(ctx, err, "Create donation failed")
	}

	status := http.StatusAccepted
	if req.Type == types.DonationTypeMonthly {
		status = http.StatusCreated
	}
	return ctx.JSON(status, mapper.FlowToResponse(flowItem))
}

func (c *DonationController) GetDonationFlow(ctx echo.Context) error {
	req := types.NewGetDonationFlowRequestFromContext(ctx)
	if errs := req.Validate(); len(errs) > 0 {
		return c.writeError(ctx, http.StatusBadRequest, errs.Error())
	}

	item, err := c.donationService.GetFlow(req.FlowID)
	if err != nil {
		if errors.Is(err, flow.ErrFlowNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "flow not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get donation flow failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.FlowToResponse(item))
}

func (c *DonationController) DismissDonationFlow(ctx echo.Context) error {
	req := types.NewGetDonationFlowRequestFromContext(ctx)
	if errs := req.Validate(); len(errs) > 0 {
		return c.writeError(ctx, http.StatusBadRequest, errs.Error())
	}

	if err := c.donationService.DismissFlow(req.FlowID); err != nil {
		switch {
		case errors.Is(err, flow.ErrFlowNotFound):
			return c.writeError(ctx, http.StatusNotFound, "flow not found")
		case errors.Is(err, flow.ErrInvalidTransition):
			return c.writeError(ctx, http.StatusConflict, "flow has nothing to dismiss")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Dismiss donation flow failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "flow dismissed"})
}

func (c *DonationController) writeFailure(ctx echo.Context, err error, logMessage string) error {
	var validationErrs types.ValidationErrors
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &validationErrs):
		return ctx.JSON(http.StatusBadRequest, &types.FieldErrorsResponse{
			Error:  "validation failed",
			Fields: validationErrs,
		})
	case errors.Is(err, service.ErrAlreadySubscribed):
		return c.writeError(ctx, http.StatusConflict, err.Error())
	case errors.As(err, &apiErr):
		return c.writeError(ctx, http.StatusUnprocessableEntity, apiErr.Message)
	case errors.Is(err, backend.ErrBackendUnreachable):
		return c.writeError(ctx, http.StatusServiceUnavailable, backend.UserMessage(err))
	case errors.Is(err, service.ErrInvalidRequest):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *DonationController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
