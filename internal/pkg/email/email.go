package email

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/qs3c/namma_kumta_server/config"
)

// AdStatusNotice 广告状态通知内容
type AdStatusNotice struct {
	Username  string
	AdTitle   string
	Event     string // approve, reject, activate
	Reason    string
	ExpiresAt *time.Time
}

type Service struct {
	cfg  *config.EmailConfig
	send func(...*gomail.Message) error
}

func NewService(cfg *config.EmailConfig) *Service {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	return &Service{cfg: cfg, send: dialer.DialAndSend}
}

// newServiceWithSender 使用自定义发送器，测试使用
func newServiceWithSender(cfg *config.EmailConfig, sender gomail.Sender) *Service {
	return &Service{
		cfg: cfg,
		send: func(msgs ...*gomail.Message) error {
			return gomail.Send(sender, msgs...)
		},
	}
}

// Enabled 未配置 SMTP 时不发送
func (s *Service) Enabled() bool {
	return s != nil && s.cfg.SMTPHost != ""
}

// SendAdStatus 发送广告状态变更邮件，不关心的事件直接忽略
func (s *Service) SendAdStatus(to string, n AdStatusNotice) error {
	if !s.Enabled() || to == "" {
		return nil
	}

	subject, body, ok := renderAdStatus(n)
	if !ok {
		return nil
	}
	return s.sendHTML(to, subject, body)
}

func renderAdStatus(n AdStatusNotice) (subject, body string, ok bool) {
	var heading, detail string
	switch n.Event {
	case "approve":
		subject = "广告审核通过 - Namma Kumta"
		heading = "审核通过"
		detail = "您的广告已通过审核，完成支付后即可上线展示。"
	case "reject":
		subject = "广告未通过审核 - Namma Kumta"
		heading = "审核未通过"
		detail = "很抱歉，您的广告未通过审核。"
		if n.Reason != "" {
			detail += fmt.Sprintf("原因：%s", n.Reason)
		}
	case "activate":
		subject = "广告已上线 - Namma Kumta"
		heading = "广告已上线"
		detail = "您的广告已开始展示。"
		if n.ExpiresAt != nil {
			detail += fmt.Sprintf("展示截止时间：%s (UTC)。", n.ExpiresAt.UTC().Format("2006-01-02 15:04"))
		}
	case "expire":
		subject = "广告展示已结束 - Namma Kumta"
		heading = "展示已结束"
		detail = "您的广告展示期已满，已停止展示。如需继续展示，请重新提交广告。"
	default:
		return "", "", false
	}

	body = fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #0f766e;">%s</h2>
        <p>您好，%s：</p>
        <p>广告「%s」：%s</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">此邮件由系统自动发送，请勿回复。</p>
    </div>
</body>
</html>
`, heading, n.Username, n.AdTitle, detail)

	return subject, body, true
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
