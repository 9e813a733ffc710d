package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

const welcomeSubject = "Welcome to Finwatch - Your Financial Journey Begins!"

const welcomeBodyTemplate = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Hi {{.Name}},</h2>
  <p>Welcome to Finwatch! We're excited to help you take control of your financial future.</p>
  <ul>
    <li>View your personalized dashboard</li>
    <li>Add your first expense</li>
    <li>Track your spending patterns</li>
  </ul>
  <p><a href="{{.DashboardURL}}">Go to Dashboard</a></p>
  <p>Happy budgeting!<br><strong>The Finwatch Team</strong></p>
</div>`

var welcomeTmpl = template.Must(template.New("welcome").Parse(welcomeBodyTemplate))

// WelcomeEmail renders the registration welcome message.
func WelcomeEmail(name, dashboardURL string) (subject, htmlBody string, err error) {
	var body bytes.Buffer
	err = welcomeTmpl.Execute(&body, struct {
		Name         string
		DashboardURL string
	}{Name: name, DashboardURL: dashboardURL})
	if err != nil {
		return "", "", fmt.Errorf("render welcome body: %w", err)
	}
	return welcomeSubject, body.String(), nil
}
