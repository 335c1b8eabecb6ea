package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/normalization"
	"github.com/ouvidoriag/ogdash2/internal/platform/sendgrid"
	"github.com/ouvidoriag/ogdash2/internal/reporting/deadline"
	"github.com/ouvidoriag/ogdash2/internal/reporting/fields"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends one message and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// RecipientResolver maps a record to the addresses responsible for it.
type RecipientResolver interface {
	Recipients(ctx context.Context, rec *domain.Record) ([]string, error)
}

// Notice is what a Composer renders.
type Notice struct {
	Trigger deadline.Trigger
	Due     deadline.Due
}

type Composer interface {
	Compose(n Notice) (subject, htmlBody, textBody string)
}

type sendgridMailer struct {
	client sendgrid.Client
}

func NewSendgridMailer(client sendgrid.Client) Mailer {
	return &sendgridMailer{client: client}
}

func (m *sendgridMailer) Send(ctx context.Context, msg Message) (string, error) {
	res, err := m.client.Send(ctx, sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: msg.To}},
		Subject:    msg.Subject,
		Text:       msg.Text,
		HTML:       msg.HTML,
		Categories: []string{"deadline-notification"},
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

var organResolution = fields.Lookup(fields.Organ)

// OrganRecipients routes by the record's organ (secretaria). Keys are matched
// after accent and case folding; Default catches everything else.
type OrganRecipients struct {
	byOrgan map[string][]string
	def     []string
}

func NewOrganRecipients(byOrgan map[string][]string, def []string) *OrganRecipients {
	r := &OrganRecipients{byOrgan: map[string][]string{}, def: cleanAddrs(def)}
	for organ, addrs := range byOrgan {
		if k := normalization.Key(organ); k != "" {
			r.byOrgan[k] = cleanAddrs(addrs)
		}
	}
	return r
}

func (r *OrganRecipients) Recipients(_ context.Context, rec *domain.Record) ([]string, error) {
	if organ, ok := fields.Read(rec, organResolution); ok {
		if addrs := r.byOrgan[normalization.Key(organ)]; len(addrs) > 0 {
			return addrs, nil
		}
	}
	return r.def, nil
}

func cleanAddrs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// PlainComposer renders a short fixed-format message.
type PlainComposer struct{}

func (PlainComposer) Compose(n Notice) (string, string, string) {
	var headline string
	switch n.Trigger {
	case deadline.Trigger15DaysBefore:
		headline = "vence em 15 dias"
	case deadline.TriggerDueToday:
		headline = "vence hoje"
	case deadline.Trigger60DaysOverdue:
		headline = "está vencida há 60 dias"
	default:
		headline = "requer atenção"
	}
	d := n.Due
	subject := fmt.Sprintf("Manifestação %s %s", d.Identifier, headline)
	text := fmt.Sprintf(
		"Protocolo: %s\nTipo: %s\nData de criação: %s\nPrazo: %d dias\nVencimento: %s\n",
		d.Identifier, d.ManifestationType, d.CreationDate, d.PrazoDays, d.DueDate,
	)
	body := fmt.Sprintf(
		"<p><strong>Protocolo:</strong> %s</p><p><strong>Tipo:</strong> %s</p><p><strong>Data de criação:</strong> %s</p><p><strong>Prazo:</strong> %d dias</p><p><strong>Vencimento:</strong> %s</p>",
		html.EscapeString(d.Identifier),
		html.EscapeString(d.ManifestationType),
		html.EscapeString(d.CreationDate),
		d.PrazoDays,
		html.EscapeString(d.DueDate),
	)
	return subject, body, text
}
