package lifecycle

import "time"

// State 生命周期快照，只包含状态机关心的字段
type State struct {
	Status        Status
	PaymentStatus PaymentStatus
	DurationDays  int
	ActivatedAt   *time.Time
	ExpiresAt     *time.Time
	ApprovedAt    *time.Time
}

// Submitted 新提交广告的初始状态
func Submitted(durationDays int) State {
	return State{
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		DurationDays:  durationDays,
	}
}

// Window 展示时长
func (s State) Window() time.Duration {
	return time.Duration(s.DurationDays) * 24 * time.Hour
}

// Activated 是否已开始展示（activatedAt 只会写入一次）
func (s State) Activated() bool {
	return s.ActivatedAt != nil
}

// Equal 比较两个快照，时间按时刻比较
func (s State) Equal(o State) bool {
	return s.Status == o.Status &&
		s.PaymentStatus == o.PaymentStatus &&
		s.DurationDays == o.DurationDays &&
		timeEqual(s.ActivatedAt, o.ActivatedAt) &&
		timeEqual(s.ExpiresAt, o.ExpiresAt) &&
		timeEqual(s.ApprovedAt, o.ApprovedAt)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// IsDue 已上线且 activatedAt + durationDays 早于 now
func IsDue(s State, now time.Time) bool {
	if s.Status != StatusActive || s.ActivatedAt == nil {
		return false
	}
	return s.ActivatedAt.Add(s.Window()).Before(now)
}

// Event 生命周期事件
type Event interface {
	Name() string
	isEvent()
}

// Approve 管理员审核通过
type Approve struct{}

// Reject 管理员驳回
type Reject struct{}

// PaymentResult 支付网关回调结果，可能重复投递
type PaymentResult struct {
	Succeeded bool
}

// Expire 到期下线
type Expire struct{}

func (Approve) Name() string { return "approve" }
func (Reject) Name() string  { return "reject" }
func (Expire) Name() string  { return "expire" }

func (e PaymentResult) Name() string {
	if e.Succeeded {
		return "payment_success"
	}
	return "payment_failed"
}

func (Approve) isEvent()       {}
func (Reject) isEvent()        {}
func (PaymentResult) isEvent() {}
func (Expire) isEvent()        {}

// Next 计算事件作用后的新状态。
// 返回的状态与输入相同时表示该事件是幂等的重复投递，调用方无需写库。
func Next(s State, ev Event, now time.Time) (State, error) {
	switch e := ev.(type) {
	case Approve:
		if s.Status != StatusPending {
			return s, ErrInvalidState
		}
		s.Status = StatusApproved
		s.ApprovedAt = timePtr(now)
		return activateIfReady(s, now), nil

	case Reject:
		if s.Status != StatusPending {
			return s, ErrInvalidState
		}
		s.Status = StatusRejected
		return s, nil

	case PaymentResult:
		if !e.Succeeded {
			// 已支付的广告不会因为迟到的失败通知而降级
			if s.PaymentStatus != PaymentPaid {
				s.PaymentStatus = PaymentFailed
			}
			return s, nil
		}
		s.PaymentStatus = PaymentPaid
		return activateIfReady(s, now), nil

	case Expire:
		if !IsDue(s, now) {
			return s, ErrInvalidState
		}
		s.Status = StatusExpired
		return s, nil
	}

	return s, ErrInvalidState
}

// activateIfReady 审核通过且已支付时上线（activatedAt 未设置才写入）
func activateIfReady(s State, now time.Time) State {
	if s.Status != StatusApproved || s.PaymentStatus != PaymentPaid || s.ActivatedAt != nil {
		return s
	}
	s.Status = StatusActive
	s.ActivatedAt = timePtr(now)
	s.ExpiresAt = timePtr(now.Add(s.Window()))
	return s
}

// CheckOwnerEdit 校验广告主编辑权限。
// durationDays 为 nil 表示本次不修改展示时长。
// 只有已支付的广告可编辑，而支付金额按套餐时长结算，所以时长在支付后即锁定，上线后自然也不能改。
func CheckOwnerEdit(s State, ownerID, requesterID int64, durationDays *int) error {
	if ownerID != requesterID {
		return ErrForbidden
	}
	if s.PaymentStatus != PaymentPaid {
		return ErrPaymentRequired
	}
	if durationDays != nil && *durationDays != s.DurationDays {
		return ErrImmutableField
	}
	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
