package list_anomalies

import (
	"net/url"
	"strconv"

	"github.com/m04kA/SMC-GarageBooking/internal/service/anomalies/models"
)

// ToServiceRequest собирает фильтр из query параметров resolved, kind, limit
func ToServiceRequest(query url.Values) (*models.ListRequest, error) {
	req := &models.ListRequest{}

	if raw := query.Get("resolved"); raw != "" {
		resolved, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, err
		}
		req.Resolved = &resolved
	}

	if kind := query.Get("kind"); kind != "" {
		req.Kind = &kind
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		req.Limit = limit
	}

	return req, nil
}
