package notifier

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"testing"

	"coinetl/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap/zaptest"
)

type fakeTransport struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeTransport) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	f.sent = append(f.sent, messages...)
	return f.err
}

func testSettings() Settings {
	return Settings{
		Sender:    "etl@example.com",
		Password:  "app-password",
		Receivers: []string{"a@example.com", "b@example.com"},
		Host:      "smtp.example.com",
		Port:      587,
	}
}

func countingDialer(tr *fakeTransport, dials *int) DialFunc {
	return func(Settings) (Transport, error) {
		*dials++
		return tr, nil
	}
}

// go test -v --run TestNotifySendsOneMessage
func TestNotifySendsOneMessage(t *testing.T) {
	tr := &fakeTransport{}
	dials := 0
	n := New(testSettings(), zaptest.NewLogger(t)).WithDialer(countingDialer(tr, &dials))

	err := n.Notify(context.Background(), "Daily report", "<p>hello</p>", "id,symbol\nbtc,btc\n", "2026-10-17")
	require.NoError(t, err)

	assert.Equal(t, 1, dials, "one session per call")
	require.Len(t, tr.sent, 1)

	msg := tr.sent[0]
	assert.Equal(t, []string{"Daily report"}, msg.GetGenHeader(mail.HeaderSubject))

	to, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, to)

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "text/html")
	assert.Contains(t, raw.String(), `filename="crypto_data_2026-10-17.csv"`)
}

// go test -v --run TestNotifySkipsWithoutCredentials
func TestNotifySkipsWithoutCredentials(t *testing.T) {
	cases := map[string]func(*Settings){
		"sender":    func(s *Settings) { s.Sender = "" },
		"password":  func(s *Settings) { s.Password = "" },
		"receivers": func(s *Settings) { s.Receivers = nil },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := testSettings()
			mutate(&s)

			tr := &fakeTransport{}
			dials := 0
			n := New(s, zaptest.NewLogger(t)).WithDialer(countingDialer(tr, &dials))

			err := n.Notify(context.Background(), "subject", "<p>x</p>", "csv", "2026-10-17")
			assert.NoError(t, err)
			assert.Zero(t, dials)
			assert.Empty(t, tr.sent)
		})
	}
}

// go test -v --run TestNotifyDeliveryError
func TestNotifyDeliveryError(t *testing.T) {
	tr := &fakeTransport{err: errors.New("535 5.7.8 Username and Password not accepted")}
	dials := 0
	n := New(testSettings(), zaptest.NewLogger(t)).WithDialer(countingDialer(tr, &dials))

	err := n.Notify(context.Background(), "subject", "<p>x</p>", "csv", "2026-10-17")
	assert.ErrorIs(t, err, ErrDelivery)
	assert.ErrorContains(t, err, "535")
}

// go test -v --run TestNotifyDialError
func TestNotifyDialError(t *testing.T) {
	n := New(testSettings(), zaptest.NewLogger(t)).WithDialer(func(Settings) (Transport, error) {
		return nil, errors.New("invalid host")
	})

	err := n.Notify(context.Background(), "subject", "<p>x</p>", "csv", "2026-10-17")
	assert.ErrorIs(t, err, ErrDelivery)
}

// go test -v --run TestNotifyInvalidSender
func TestNotifyInvalidSender(t *testing.T) {
	s := testSettings()
	s.Sender = "not an address"
	dials := 0
	n := New(s, zaptest.NewLogger(t)).WithDialer(countingDialer(&fakeTransport{}, &dials))

	err := n.Notify(context.Background(), "subject", "<p>x</p>", "csv", "2026-10-17")
	assert.ErrorIs(t, err, ErrDelivery)
	assert.Zero(t, dials)
}

// go test -v --run TestDialSMTP
func TestDialSMTP(t *testing.T) {
	tr, err := DialSMTP(testSettings())
	require.NoError(t, err)
	assert.NotNil(t, tr)
}

// go test -v --run TestSettingsFromConfig
func TestSettingsFromConfig(t *testing.T) {
	s := SettingsFromConfig(config.EmailConfig{
		Sender: "etl@example.com", Password: "pw", Receivers: "a@example.com,b@example.com",
		SMTPHost: "smtp.gmail.com", SMTPPort: 587,
	})
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, s.Receivers)
	assert.True(t, s.complete())
}

// go test -v --run TestRenderReport
func TestRenderReport(t *testing.T) {
	body, err := RenderReport(ReportData{
		DateLabel:   "2026-10-17",
		Table:       "crypto_data",
		Database:    "crypto_db",
		RowCount:    250,
		GainersHTML: template.HTML(`<table class="dataframe"><tr><td>up</td></tr></table>`),
		LosersHTML:  template.HTML(`<table class="dataframe"><tr><td>down</td></tr></table>`),
	})
	require.NoError(t, err)

	assert.Contains(t, body, "<strong>2026-10-17</strong>")
	assert.Contains(t, body, "(250 coins)")
	assert.Contains(t, body, `<table class="dataframe"><tr><td>up</td></tr></table>`)
	assert.Contains(t, body, `<table class="dataframe"><tr><td>down</td></tr></table>`)
	assert.Less(t, bytes.Index([]byte(body), []byte("up</td>")), bytes.Index([]byte(body), []byte("down</td>")))
	assert.Equal(t, "Crypto market report: top 10 movers for 2026-10-17", Subject("2026-10-17"))
}
