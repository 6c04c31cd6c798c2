package orchestrator

import (
	"fmt"
	"strings"

	"github.com/regalspin/gamepanel/pkg/entities"
)

// formatMessage renders the operator-facing approval prompt for a request.
// HTML markup so credential values arrive in <code> blocks that are easy to
// copy into the game software.
func formatMessage(user *entities.User, req *entities.Request) string {
	var b strings.Builder

	switch p := req.Payload.(type) {
	case entities.SavePayload:
		b.WriteString("<b>ACCOUNT SAVE REQUEST</b>\n")
		writeIdentity(&b, user, req)
		fmt.Fprintf(&b, "Password: <code>%s</code>", p.Password)

	case entities.ResetPayload:
		b.WriteString("<b>PASSWORD RESET REQUEST</b>\n")
		writeIdentity(&b, user, req)
		fmt.Fprintf(&b, "Old Password: <code>%s</code>\n", p.OldPassword)
		fmt.Fprintf(&b, "New Password: <code>%s</code>", p.NewPassword)

	case entities.TransactionPayload:
		fmt.Fprintf(&b, "<b>%s REQUEST</b>\n", strings.ToUpper(string(req.Type)))
		writeIdentity(&b, user, req)
		fmt.Fprintf(&b, "Amount: <b>%d</b>", p.Amount)

	case entities.FreePlayPayload:
		b.WriteString("<b>FREE PLAY REQUEST</b>\n")
		writeIdentity(&b, user, req)
		b.WriteString("One-time free play claim")

	default:
		fmt.Fprintf(&b, "<b>%s REQUEST</b>\n", strings.ToUpper(string(req.Type)))
		writeIdentity(&b, user, req)
	}

	return b.String()
}

func writeIdentity(b *strings.Builder, user *entities.User, req *entities.Request) {
	fmt.Fprintf(b, "User: %s\n", user.Name)
	fmt.Fprintf(b, "ID: <code>%s</code>\n", user.PlayerID)
	fmt.Fprintf(b, "Game: %s\n", req.GameName)
}
