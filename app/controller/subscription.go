package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-donations/app/backend"
	"github.com/vibast-solutions/ms-go-donations/app/factory"
	"github.com/vibast-solutions/ms-go-donations/app/service"
	"github.com/vibast-solutions/ms-go-donations/app/types"
)

type SubscriptionController struct {
	manager *service.SubscriptionManager
	logger  logrus.FieldLogger
}

func NewSubscriptionController(manager *service.SubscriptionManager) *SubscriptionController {
	return &SubscriptionController{
		manager: manager,
		logger:  factory.NewModuleLogger("subscriptions-controller"),
	}
}

func (c *SubscriptionController) GetMySubscription(ctx echo.Context) error {
	req := types.NewMySubscriptionRequestFromContext(ctx)
	if errs := req.Validate(); len(errs) > 0 {
		return c.writeError(ctx, http.StatusBadRequest, errs.Error())
	}

	item, err := c.manager.Fetch(ctx.Request().Context(), req.Email)
	if err != nil {
		return c.writeFailure(ctx, err, "Fetch subscription failed")
	}
	if item == nil {
		return c.writeError(ctx, http.StatusNotFound, service.ErrSubscriptionNotFound.Error())
	}

	return ctx.JSON(http.StatusOK, &types.SubscriptionEnvelopeResponse{Subscription: item})
}

func (c *SubscriptionController) UpdateSubscription(ctx echo.Context) error {
	req, err := types.NewUpdateSubscriptionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	item, err := c.manager.Update(ctx.Request().Context(), req)
	if err != nil {
		return c.writeFailure(ctx, err, "Update subscription failed")
	}

	return ctx.JSON(http.StatusOK, &types.SubscriptionEnvelopeResponse{Subscription: item})
}

func (c *SubscriptionController) PauseSubscription(ctx echo.Context) error {
	req, err := types.NewPauseSubscriptionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	item, err := c.manager.Pause(ctx.Request().Context(), req)
	if err != nil {
		return c.writeFailure(ctx, err, "Pause subscription failed")
	}

	return ctx.JSON(http.StatusOK, &types.SubscriptionEnvelopeResponse{Subscription: item})
}

func (c *SubscriptionController) ResumeSubscription(ctx echo.Context) error {
	req, err := types.NewResumeSubscriptionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	item, err := c.manager.Resume(ctx.Request().Context(), req)
	if err != nil {
		return c.writeFailure(ctx, err, "Resume subscription failed")
	}

	return ctx.JSON(http.StatusOK, &types.SubscriptionEnvelopeResponse{Subscription: item})
}

func (c *SubscriptionController) CancelSubscription(ctx echo.Context) error {
	req, err := types.NewCancelSubscriptionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	if err := c.manager.Cancel(ctx.Request().Context(), req); err != nil {
		return c.writeFailure(ctx, err, "Cancel subscription failed")
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "subscription cancelled"})
}

func (c *SubscriptionController) writeFailure(ctx echo.Context, err error, logMessage string) error {
	var validationErrs types.ValidationErrors
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &validationErrs):
		return ctx.JSON(http.StatusBadRequest, &types.FieldErrorsResponse{
			Error:  "validation failed",
			Fields: validationErrs,
		})
	case errors.Is(err, service.ErrSubscriptionNotFound):
		return c.writeError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrOperationInFlight),
		errors.Is(err, service.ErrSubscriptionCancelled),
		errors.Is(err, service.ErrAlreadyPaused),
		errors.Is(err, service.ErrNotPaused):
		return c.writeError(ctx, http.StatusConflict, err.Error())
	case errors.As(err, &apiErr):
		return c.writeError(ctx, http.StatusUnprocessableEntity, apiErr.Message)
	case errors.Is(err, backend.ErrBackendUnreachable):
		return c.writeError(ctx, http.StatusServiceUnavailable, backend.UserMessage(err))
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *SubscriptionController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
