package resolve_anomaly

import (
	"context"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/service/anomalies/models"
)

type AnomalyService interface {
	Resolve(ctx context.Context, id int64, req *models.ResolveRequest, principal domain.Principal) (*models.AnomalyResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
