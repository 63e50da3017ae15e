package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/verawork/vera-backend/pkg/config"
	mail "github.com/wneessen/go-mail"
)

// Channel names
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelPush     = "push"
)

// emailChannel sends plain-text mail over SMTP with STARTTLS
type emailChannel struct {
	cfg *config.SMTPConfig
}

func (c *emailChannel) send(to, subject, body string) error {
	if !c.cfg.Configured() {
		return fmt.Errorf("SMTP nicht konfiguriert")
	}

	from := c.cfg.FromEmail
	if from == "" {
		from = c.cfg.User
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(c.cfg.Host,
		mail.WithPort(c.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(c.cfg.User),
		mail.WithPassword(c.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return err
	}
	return client.DialAndSend(msg)
}

// telegramChannel sends messages through the Bot API
type telegramChannel struct {
	cfg    *config.TelegramConfig
	client *http.Client
}

func newTelegramChannel(cfg *config.TelegramConfig) *telegramChannel {
	return &telegramChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *telegramChannel) send(ctx context.Context, chatID, message string) error {
	if c.cfg.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN nicht konfiguriert")
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.cfg.BotToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		bytes.NewBufferString(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// pushChannel sends web push messages to registered browser endpoints
type pushChannel struct {
	cfg  *config.WebPushConfig
	repo *Repository
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// send delivers to every subscription of the employee. Gone endpoints
// are pruned. Succeeds when at least one delivery went through.
func (c *pushChannel) send(ctx context.Context, employeeID, title, body string) error {
	if c.cfg.VAPIDPrivateKey == "" {
		return fmt.Errorf("VAPID_PRIVATE_KEY nicht konfiguriert")
	}

	subs, err := c.repo.ListSubscriptions(ctx, employeeID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return fmt.Errorf("keine Push-Subscriptions vorhanden")
	}

	payload, err := json.Marshal(pushPayload{Title: title, Body: body, URL: "/"})
	if err != nil {
		return err
	}

	var lastErr error
	sentAny := false
	for _, sub := range subs {
		s := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}
		resp, err := webpush.SendNotification(payload, s, &webpush.Options{
			Subscriber:      c.cfg.ClaimsSubject,
			VAPIDPublicKey:  c.cfg.VAPIDPublicKey,
			VAPIDPrivateKey: c.cfg.VAPIDPrivateKey,
			TTL:             3600,
		})
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusGone {
			c.repo.DeleteSubscription(ctx, sub.Endpoint)
			resp.Body.Close()
			continue
		}
		resp.Body.Close()
		sentAny = true
	}

	if !sentAny {
		if lastErr != nil {
			return lastErr
		}
		return fmt.Errorf("keine Zustellung möglich")
	}
	return nil
}
