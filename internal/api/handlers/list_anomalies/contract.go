package list_anomalies

import (
	"context"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/service/anomalies/models"
)

type AnomalyService interface {
	List(ctx context.Context, req *models.ListRequest, principal domain.Principal) (*models.AnomalyListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
