package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"bistro/internal/config"
	"bistro/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wneessen/go-mail"
)

var orderEmail = template.Must(template.New("order").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}).Parse(`<h1>New order</h1>
<p><strong>Customer:</strong> {{.CustomerName}}</p>
{{with .CustomerEmail}}<p><strong>Email:</strong> {{.}}</p>{{end}}
{{with .Notes}}<p><strong>Notes:</strong> {{.}}</p>{{end}}
<p><strong>Time:</strong> {{.CreatedAt.Format "2006-01-02 15:04 MST"}}</p>
<h2>Items</h2>
<table border="1" cellpadding="5" style="border-collapse: collapse;">
<tr><th>Dish</th><th>Qty</th><th>Price</th><th>Subtotal</th><th>Note</th></tr>
{{range .Items}}<tr><td>{{.DishName}}</td><td>{{.Quantity}}</td><td>{{money .Price}}</td><td>{{money .Subtotal}}</td><td>{{.Note}}</td></tr>
{{end}}<tr><td colspan="3"><strong>Total</strong></td><td colspan="2"><strong>{{money .Total}}</strong></td></tr>
</table>
<p>Order {{.ID}}</p>
`))

// mailSender is satisfied by *mail.Client.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// MailNotifier e-mails an itemised order summary to the restaurant.
type MailNotifier struct {
	client mailSender
	from   string
	to     string
	logger zerolog.Logger
}

// NewMailNotifier creates an SMTP notifier from the mail configuration.
// Port 465 uses implicit TLS, other ports upgrade with STARTTLS when offered.
func NewMailNotifier(cfg config.MailConfig, logger zerolog.Logger) (*MailNotifier, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return newMailNotifier(client, cfg.From, cfg.To, logger), nil
}

func newMailNotifier(client mailSender, from, to string, logger zerolog.Logger) *MailNotifier {
	return &MailNotifier{
		client: client,
		from:   from,
		to:     to,
		logger: logger.With().Str("notifier", "mail").Logger(),
	}
}

// OrderPlaced implements Notifier.
func (n *MailNotifier) OrderPlaced(ctx context.Context, order *model.Order) error {
	msg, err := n.message(order)
	if err != nil {
		return err
	}

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send order email: %w", err)
	}

	n.logger.Info().Str("order_id", order.ID.String()).Str("to", n.to).Msg("order email sent")

	return nil
}

func (n *MailNotifier) message(order *model.Order) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(n.to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	if order.CustomerEmail != nil && *order.CustomerEmail != "" {
		if err := msg.ReplyTo(*order.CustomerEmail); err != nil {
			n.logger.Debug().Err(err).Msg("ignoring invalid customer email")
		}
	}

	msg.Subject("New order from " + order.CustomerName)
	msg.SetDate()

	body, err := RenderOrderEmail(order)
	if err != nil {
		return nil, err
	}
	msg.SetBodyString(mail.TypeTextHTML, body)

	return msg, nil
}

// RenderOrderEmail renders the HTML body of the order email.
func RenderOrderEmail(order *model.Order) (string, error) {
	var buf bytes.Buffer
	if err := orderEmail.Execute(&buf, order); err != nil {
		return "", fmt.Errorf("failed to render order email: %w", err)
	}
	return buf.String(), nil
}
