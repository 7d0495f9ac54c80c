package mpesa_callback

// Ack ответ шлюзу. Daraja повторяет уведомление, пока не получит подтверждение,
// поэтому ответ всегда одинаковый, даже если уведомление не удалось обработать.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

var accepted = Ack{ResultCode: 0, ResultDesc: "Accepted"}
