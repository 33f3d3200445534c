package reminder

import "fmt"

const signature = "SwasThAI Health Assistant"

// Compose renders the reminder subject and body for n.
func Compose(n Notification) (subject, body string) {
	subject = fmt.Sprintf("Health Reminder: %s for %s", n.EventTitle, n.MemberName)
	body = fmt.Sprintf("Hello,\n\n"+
		"This is a reminder that %s has %s scheduled in %d days on %s.\n\n"+
		"Please make sure to prepare accordingly.\n\n"+
		"Best regards,\n%s\n",
		n.MemberName, n.EventTitle, n.DaysUntil, n.EventDate, signature)
	return subject, body
}
