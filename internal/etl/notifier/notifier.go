package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coinetl/config"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

var (
	// ErrDelivery marks a message the transport refused or could not send.
	ErrDelivery = errors.New("report delivery failed")
	// ErrConfigurationGap marks missing sender credentials or recipients.
	// Notify logs it and skips delivery; it is never returned.
	ErrConfigurationGap = errors.New("email sender, password or receivers not configured")
)

// Transport sends composed messages over one SMTP session.
type Transport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// DialFunc builds a fresh transport for a single Notify call.
type DialFunc func(s Settings) (Transport, error)

// Settings holds the SMTP account and recipients.
type Settings struct {
	Sender    string
	Password  string
	Receivers []string
	Host      string
	Port      int
	Timeout   time.Duration
}

// SettingsFromConfig maps the email section of the app config.
func SettingsFromConfig(cfg config.EmailConfig) Settings {
	return Settings{
		Sender:    cfg.Sender,
		Password:  cfg.Password,
		Receivers: cfg.ReceiverList(),
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Timeout:   30 * time.Second,
	}
}

func (s Settings) complete() bool {
	return s.Sender != "" && s.Password != "" && len(s.Receivers) > 0
}

type Notifier struct {
	settings Settings
	dial     DialFunc
	logger   *zap.Logger
}

func New(settings Settings, logger *zap.Logger) *Notifier {
	return &Notifier{settings: settings, dial: DialSMTP, logger: logger}
}

// WithDialer replaces the transport factory.
func (n *Notifier) WithDialer(dial DialFunc) *Notifier {
	n.dial = dial
	return n
}

// DialSMTP returns a go-mail client that upgrades with STARTTLS and authenticates
// with PLAIN. The connection is opened by DialAndSendWithContext and closed after sending.
func DialSMTP(s Settings) (Transport, error) {
	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithPort(s.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.Sender),
		mail.WithPassword(s.Password),
	}
	if s.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.Timeout))
	}
	return mail.NewClient(s.Host, opts...)
}

// AttachmentName is the file name of the snapshot attached for dateLabel.
func AttachmentName(dateLabel string) string {
	return fmt.Sprintf("crypto_data_%s.csv", dateLabel)
}

// Notify sends one email with htmlBody as the body and snapshotCSV attached.
// With incomplete settings it logs and returns nil without contacting the server.
func (n *Notifier) Notify(ctx context.Context, subject, htmlBody, snapshotCSV, dateLabel string) error {
	if !n.settings.complete() {
		n.logger.Warn("skipping report email", zap.Error(ErrConfigurationGap))
		return nil
	}

	msg, err := n.compose(subject, htmlBody, snapshotCSV, dateLabel)
	if err != nil {
		return fmt.Errorf("%w: compose: %v", ErrDelivery, err)
	}

	transport, err := n.dial(n.settings)
	if err != nil {
		return fmt.Errorf("%w: smtp client: %v", ErrDelivery, err)
	}

	if err := transport.DialAndSendWithContext(ctx, msg); err != nil {
		n.logger.Error("unable to send mail", zap.String("host", n.settings.Host), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	n.logger.Info("email sent", zap.Strings("to", n.settings.Receivers), zap.String("attachment", AttachmentName(dateLabel)))
	return nil
}

func (n *Notifier) compose(subject, htmlBody, snapshotCSV, dateLabel string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.settings.Sender); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(n.settings.Receivers...); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	err := msg.AttachReader(AttachmentName(dateLabel), strings.NewReader(snapshotCSV),
		mail.WithFileContentType(mail.ContentType("text/csv")))
	if err != nil {
		return nil, fmt.Errorf("attach snapshot: %w", err)
	}
	return msg, nil
}
