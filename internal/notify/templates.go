package notify

import (
	"fmt"
	"strings"
	"time"
)

// ErasureConfirmation builds the email sent to a client after their data has
// been erased. The recipient address must be captured before anonymization.
func ErasureConfirmation(toEmail, clientName string, erasedAt time.Time) EmailMessage {
	if clientName == "" {
		clientName = "there"
	}
	body := fmt.Sprintf(`Hello %s,

This confirms that your request to delete your personal data has been completed
on %s.

Your identifying information has been removed from our systems. Records we are
required to keep for regulatory purposes have been anonymized and can no longer
be linked to you.

If you did not request this, please contact us immediately.

— BrightHarbor Home Care`, clientName, erasedAt.Format("January 2, 2006"))

	return EmailMessage{
		To:      toEmail,
		ToName:  clientName,
		Subject: "Your data deletion request is complete",
		Body:    body,
	}
}

// BreachAlert builds the email sent to administrators when a security scan
// raises a critical finding.
func BreachAlert(toEmail string, findings []string, detectedAt time.Time) EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "A security scan at %s flagged the following:\n\n", detectedAt.Format(time.RFC1123))
	for _, f := range findings {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	b.WriteString("\nReview the activity log and open incidents in the admin console.\n\n— BrightHarbor Home Care")

	return EmailMessage{
		To:      toEmail,
		Subject: "Security alert: suspicious activity detected",
		Body:    b.String(),
	}
}
