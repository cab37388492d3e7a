package service

import (
	"fmt"
	"strings"
)

func welcomeEmailTemplate(name, studioURL, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your account is ready. Open the studio to design your first card:
%s

If you have questions, reach out to our support team.

Best,
The %s Team`, name, studioURL, appName)

	return subject, body
}

func cardSoldEmailTemplate(name, cardTitle, amount, earningsURL, appName string) (string, string) {
	subject := fmt.Sprintf("You sold %q on %s", cardTitle, appName)
	body := fmt.Sprintf(`Hi %s,

Good news: %q just sold on the marketplace.

Your share after the platform fee is %s. It will be included in your next payout once your payout account is active.

See your earnings: %s

Best,
The %s Team`, name, cardTitle, amount, earningsURL, appName)

	return subject, body
}

func payoutSentEmailTemplate(name, amount, earningsURL, appName string) (string, string) {
	subject := fmt.Sprintf("Your %s payout is on its way", appName)
	body := fmt.Sprintf(`Hi %s,

We sent a payout of %s to your connected account. Depending on your bank it can take a few business days to arrive.

Payout history: %s

Best,
The %s Team`, name, amount, earningsURL, appName)

	return subject, body
}

func accountDeletedEmailTemplate(name, appName string) (string, string) {
	subject := fmt.Sprintf("Your %s account has been deleted", appName)
	body := fmt.Sprintf(`Hi %s,

Your account and all your cards, collections and memories have been permanently deleted.

We're sorry to see you go. If you change your mind, you're always welcome back.

Best,
The %s Team`, name, appName)

	return subject, body
}

// formatCents renders an amount like 12.50 USD.
func formatCents(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}
