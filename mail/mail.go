// mail delivers account lifecycle email. Delivery is fire and forget: the
// message is handed to a goroutine together with a snapshot of the SMTP
// configuration, the originating request never waits on the transport, and
// a failed send is only visible in the logs. There is no retry.
package mail

import (
	"fmt"
	"os"
	"strconv"

	gomail "github.com/go-mail/mail/v2"
	"github.com/sunshen/weblog/model"
	. "github.com/sunshen/weblog/utils/log"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
	// BaseURL is the public address links in the mail point back to.
	BaseURL string
}

func ConfigFromEnv() Config {
	port, _ := strconv.Atoi(os.Getenv("MAIL_PORT"))
	if port == 0 {
		port = 587
	}
	return Config{
		Host:     os.Getenv("MAIL_HOST"),
		Port:     port,
		Username: os.Getenv("MAIL_USERNAME"),
		Password: os.Getenv("MAIL_PASSWORD"),
		Sender:   os.Getenv("MAIL_SENDER"),
		BaseURL:  os.Getenv("WEBLOG_BASE_URL"),
	}
}

// Service sends mail with a config snapshot taken at construction, so an
// in-flight send never observes config changes.
type Service struct {
	cfg Config
}

func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// SendConfirmation mails the email-confirmation link for a freshly
// registered (or re-addressed) account.
func (s *Service) SendConfirmation(user *model.User, email string, tok string) {
	link := fmt.Sprintf("%s/confirm/%s", s.cfg.BaseURL, tok)
	s.send(
		email,
		"Confirm your account",
		fmt.Sprintf("Hi %s,\n\nconfirm your account by visiting:\n%s\n", user.Name, link),
		fmt.Sprintf("<p>Hi %s,</p><p>confirm your account by clicking <a href=%q>here</a>.</p>", user.Name, link),
	)
}

// SendPasswordReset mails the password-reset link.
func (s *Service) SendPasswordReset(user *model.User, tok string) {
	link := fmt.Sprintf("%s/reset-password/%s", s.cfg.BaseURL, tok)
	s.send(
		user.Email,
		"Reset your password",
		fmt.Sprintf("Hi %s,\n\nreset your password by visiting:\n%s\n", user.Name, link),
		fmt.Sprintf("<p>Hi %s,</p><p>reset your password by clicking <a href=%q>here</a>.</p>", user.Name, link),
	)
}

// send dispatches one multipart/alternative message asynchronously. Clients
// that can't display HTML fall back to the plaintext part.
func (s *Service) send(to string, subject string, textBody string, htmlBody string) {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.Sender)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	cfg := s.cfg
	go func() {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		if err := d.DialAndSend(m); err != nil {
			Log.Error("fail to send mail to ", to, ": ", err)
			return
		}
		Log.Info("sent mail to ", to, ": ", subject)
	}()
}
