package notifications

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/procurement-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

const (
	TemplatePurchaseOrderReceived = "purchase_order_received"
	TemplateInvoiceIssued         = "invoice_issued"

	SignatureHeader = "X-Procurement-Signature"
)

// Message is one outbound notification. WebhookURL overrides the
// dispatcher's default endpoint when set.
type Message struct {
	Recipient  string
	Subject    string
	Template   string
	POID       string
	WebhookURL string
	Data       map[string]any
}

// Dispatcher delivers a notification outside the application.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
	Channel() string
}

// LogDispatcher only logs the message. Used in development.
type LogDispatcher struct {
	logg *logger.Logger
}

func NewLogDispatcher(logg *logger.Logger) *LogDispatcher {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogDispatcher{logg: logg}
}

func (d *LogDispatcher) Channel() string { return "log" }

func (d *LogDispatcher) Dispatch(ctx context.Context, msg Message) error {
	ctx = d.logg.WithFields(ctx, map[string]any{
		"recipient": msg.Recipient,
		"subject":   msg.Subject,
		"template":  msg.Template,
		"po_id":     msg.POID,
	})
	d.logg.Info(ctx, "notification dispatched")
	return nil
}

type webhookBody struct {
	From      string         `json:"from"`
	Recipient string         `json:"recipient"`
	Subject   string         `json:"subject"`
	Template  string         `json:"template"`
	POID      string         `json:"po_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	SentAt    time.Time      `json:"sent_at"`
}

// WebhookDispatcher POSTs the message as JSON. Bodies are signed with
// HMAC-SHA256 when a secret is configured.
type WebhookDispatcher struct {
	client     *http.Client
	defaultURL string
	secret     []byte
	from       string
	now        func() time.Time
}

func NewWebhookDispatcher(cfg config.NotificationsConfig, client *http.Client) *WebhookDispatcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &WebhookDispatcher{
		client:     client,
		defaultURL: strings.TrimSpace(cfg.DefaultWebhookURL),
		secret:     []byte(cfg.WebhookSecret),
		from:       cfg.FromAddress,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (d *WebhookDispatcher) Channel() string { return "webhook" }

func (d *WebhookDispatcher) Dispatch(ctx context.Context, msg Message) error {
	target := strings.TrimSpace(msg.WebhookURL)
	if target == "" {
		target = d.defaultURL
	}
	if target == "" {
		return pkgerrors.New(pkgerrors.CodeNotification, "no webhook endpoint configured")
	}

	body, err := json.Marshal(webhookBody{
		From:      d.from,
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Template:  msg.Template,
		POID:      msg.POID,
		Data:      msg.Data,
		SentAt:    d.now(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotification, err, "encode webhook body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotification, err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	if len(d.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(d.secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotification, err, "deliver webhook")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.Newf(pkgerrors.CodeNotification, "webhook responded %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
