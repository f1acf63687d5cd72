package orders

import (
	"github.com/google/uuid"
	"time"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
	PaymentCancel   PaymentStatus = "CANCEL"
)

type PaymentMethod string

const (
	MethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	MethodCard           PaymentMethod = "CARD"
	MethodMobileBanking  PaymentMethod = "MOBILE_BANKING"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCashOnDelivery, MethodCard, MethodMobileBanking:
		return true
	}
	return false
}

type Payment struct {
	ID            uuid.UUID     `json:"id"`
	OrderID       uuid.UUID     `json:"order_id"`
	Amount        int64         `json:"amount"`
	Method        PaymentMethod `json:"method"`
	TransactionID *string       `json:"transaction_id"`
	Status        PaymentStatus `json:"status"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
