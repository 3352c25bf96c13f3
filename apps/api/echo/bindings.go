package echoapi

import (
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/alama/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the `ordering` query param, e.g: ?ordering=-gpa,student_name
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// parseRecipients parses the recipients of a report email, reporting the first invalid one.
func parseRecipients(addrs []string) ([]mail.Address, error) {
	recipients := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		addr, err := mail.ParseAddress(core.CleanString(a))
		if err != nil {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "to", Error: "invalid email address: " + a})
		}
		recipients = append(recipients, *addr)
	}
	return recipients, nil
}
