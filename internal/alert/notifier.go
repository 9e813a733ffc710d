package alert

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"finwatch/internal/core"
	"finwatch/internal/mail"
)

const alertBodyTemplate = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Hi {{.Name}},</h2>
  <div style="background: #fee; border-left: 4px solid #f56565; padding: 15px; margin: 20px 0;">
    <p><strong>Your account balance is running low!</strong></p>
    <p>You have only <strong>{{printf "%.1f" .Percentage}}%</strong> of your salary remaining this month.</p>
    <p>Remaining Balance: <strong>&#8377;{{.Balance}}</strong></p>
  </div>
  <p>Please review your expenses and plan accordingly.</p>
  <p><a href="{{.DashboardURL}}">View Dashboard</a></p>
</div>`

// Notifier renders the low-balance email and hands it to the delivery
// capability. Sending is the only slow or failing step in the pipeline,
// so every call is bounded by a timeout. The notifier never touches the
// alert ledger; a failed delivery is returned to the caller so it stays
// retryable on the next tick.
type Notifier struct {
	sender       mail.Sender
	dashboardURL string
	timeout      time.Duration
	tmpl         *template.Template
}

func NewNotifier(sender mail.Sender, dashboardURL string, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		sender:       sender,
		dashboardURL: dashboardURL,
		timeout:      timeout,
		tmpl:         template.Must(template.New("low_balance").Parse(alertBodyTemplate)),
	}
}

// Notify builds the alert message for the user and sends it. Returns a
// *core.DeliveryError when the send fails or times out.
func (n *Notifier) Notify(ctx context.Context, user core.User, result core.AggregateResult, decision Decision) error {
	subject := fmt.Sprintf("%s: Low Balance Alert - %.1f%% Remaining",
		severityLabel(decision.Severity), decision.Percentage)

	var body bytes.Buffer
	err := n.tmpl.Execute(&body, struct {
		Name         string
		Percentage   float64
		Balance      string
		DashboardURL string
	}{
		Name:         user.Name,
		Percentage:   decision.Percentage,
		Balance:      result.RemainingBalance().Format(),
		DashboardURL: n.dashboardURL,
	})
	if err != nil {
		return fmt.Errorf("render alert body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.sender.Send(ctx, user.Email, subject, body.String()); err != nil {
		return &core.DeliveryError{Recipient: user.Email, Err: err}
	}
	return nil
}

func severityLabel(s Severity) string {
	if s == SeverityCritical {
		return "Critical"
	}
	return "Warning"
}
