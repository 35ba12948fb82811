// Package lifecycle 广告生命周期状态机
//
// 状态流转：pending -> approved/rejected，approved + paid -> active，
// active 到期后 -> expired。所有判断都是纯函数，持久化由调用方负责。
package lifecycle

// Status 广告状态
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
)

var allStatuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusActive, StatusExpired}

func (s Status) Valid() bool {
	for _, v := range allStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// AllStatuses 返回全部状态（按生命周期顺序）
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

var allPaymentStatuses = []PaymentStatus{PaymentUnpaid, PaymentPaid, PaymentFailed}

func (p PaymentStatus) Valid() bool {
	for _, v := range allPaymentStatuses {
		if p == v {
			return true
		}
	}
	return false
}

func (p PaymentStatus) String() string {
	return string(p)
}

// AllPaymentStatuses 返回全部支付状态
func AllPaymentStatuses() []PaymentStatus {
	out := make([]PaymentStatus, len(allPaymentStatuses))
	copy(out, allPaymentStatuses)
	return out
}
