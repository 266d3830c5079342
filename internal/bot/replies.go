package bot

import (
	"fmt"
	"strings"
)

// Commands.
const (
	cmdStart    = "start"
	cmdHelp     = "help"
	cmdAdd      = "add"
	cmdSummary  = "summary"
	cmdTable    = "table"
	cmdTableMin = "table_min"
	cmdClean    = "clean"
	cmdDelete   = "delete"
	cmdCancel   = "cancel"
)

// Button tokens.
const (
	tokenEven      = "inhalf"
	tokenCustom    = "other"
	tokenCleanYes  = "yes"
	tokenCleanNo   = "no"
	tokenDeleteYes = "yes_del"
	tokenDeleteNo  = "no_del"
	tokenCancel    = "cancel"
)

const (
	replyWelcome        = "Hi! I'm a money_bot\U0001F4B8"
	replyUnauthorized   = "this bot doesn't work for you\U0001F595"
	replyAddPrompt      = "enter add parameters\nformat: name_of_buy price"
	replySplitChoice    = "half payment or not?"
	replyCustomPrompt   = "please write price for everyone\nformat: 1_payer 1_price 2_payer 2_price"
	replyWritten        = "your buy was written"
	replyMismatch       = "prices aren't equal sum\nplease write price"
	replyWrongRequest   = "wrong request"
	replyCleanConfirm   = "are you sure you want to clean table?"
	replyDeleteConfirm  = "are you sure you want to delete row?"
	replyCleaned        = "table was cleaned"
	replyDeleted        = "entry was deleted"
	replyCannotDelete   = "you can't delete more entries"
	replyChooseAnother  = "choose another command"
	replyCancelled      = "operation cancelled"
	replyNothingPending = "nothing to cancel"
)

var (
	splitButtons = []Button{
		{Text: "in half", Data: tokenEven},
		{Text: "other", Data: tokenCustom},
		{Text: "cancel", Data: tokenCancel},
	}
	cleanButtons  = []Button{{Text: "yes", Data: tokenCleanYes}, {Text: "no", Data: tokenCleanNo}}
	deleteButtons = []Button{{Text: "yes", Data: tokenDeleteYes}, {Text: "no", Data: tokenDeleteNo}}
)

func helpText(groups []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "help\U0001F64C\n\ngroups: %s\n\n", strings.Join(groups, ","))
	b.WriteString("/add - function for addition new buy\n")
	b.WriteString("format: buy price\n")
	b.WriteString("format for buying not in half: name_of_payer_1 price_1 name_of_payer_2 price_2\n\n")
	b.WriteString("/summary - balances for groups\n\n")
	b.WriteString("/table - table with payers, buys, prices and price for everyone\n\n")
	b.WriteString("/table_min - table with payers, buys and prices\n\n")
	b.WriteString("/delete - delete last row\n\n")
	b.WriteString("/clean - clean table\n\n")
	b.WriteString("/cancel - drop the operation in progress")
	return b.String()
}
