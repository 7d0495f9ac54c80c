package outbox

import (
	"github.com/m04kA/SMC-GarageBooking/pkg/dbmetrics"
)

type DBExecutor = dbmetrics.DBExecutor
