package handler

import (
	"errors"

	"stocktrack-api/internal/service"
	"stocktrack-api/pkg/apierror"
)

// serviceError translates reconciliation errors into API errors. Unknown
// errors fall through and surface as 500s.
func serviceError(err error) error {
	var (
		reqNotFound    *service.RequestNotFoundError
		itemNotFound   *service.StockItemNotFoundError
		itemIDNotFound *service.StockItemIDNotFoundError
		insufficient   *service.InsufficientStockError
	)

	switch {
	case errors.As(err, &reqNotFound),
		errors.As(err, &itemNotFound),
		errors.As(err, &itemIDNotFound):
		return apierror.NotFound(err.Error())
	case errors.As(err, &insufficient):
		return apierror.InsufficientStock(insufficient.Available, insufficient.Requested)
	case errors.Is(err, service.ErrAlreadyProcessed):
		return apierror.AlreadyProcessed("")
	case errors.Is(err, service.ErrInvalidCredentials):
		return apierror.Unauthorized("Invalid email or login key")
	default:
		return err
	}
}
