package amqp

import (
	"encoding/json"
	"time"

	"financas/internal/core"
)

// PaymentUpdatedType tags messages announcing a fixed-expense payment change.
const PaymentUpdatedType = "fixed_expense.payment_updated"

// PaymentUpdatedMessage announces that the paid status of a fixed expense
// changed for one reference month. Subscribers use it to drop cached
// dashboards of that year.
type PaymentUpdatedMessage struct {
	Type           string    `json:"type"`
	PaymentID      int64     `json:"payment_id"`
	FixedExpenseID int64     `json:"fixed_expense_id"`
	Month          int       `json:"month"`
	Year           int       `json:"year"`
	Paid           bool      `json:"paid"`
	PaymentDate    core.Date `json:"payment_date"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewPaymentUpdatedMessage builds the message for a stored payment record.
func NewPaymentUpdatedMessage(p core.FixedExpensePayment) *PaymentUpdatedMessage {
	return &PaymentUpdatedMessage{
		Type:           PaymentUpdatedType,
		PaymentID:      p.ID,
		FixedExpenseID: p.FixedExpenseID,
		Month:          p.Month,
		Year:           p.Year,
		Paid:           p.Paid,
		PaymentDate:    p.PaymentDate,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PaymentUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PaymentUpdatedMessageFromJSON decodes a message body.
func PaymentUpdatedMessageFromJSON(data []byte) (*PaymentUpdatedMessage, error) {
	var msg PaymentUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
