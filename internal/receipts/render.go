package receipts

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Line is one printable receipt line handed to the front office.
type Line struct {
	Number      string
	StudentName string
	TrancheName string
	Amount      int64
	PaidAt      time.Time
}

// Renderer formats receipt lines for printing. Amounts are grouped with
// French separators to match the school's stationery.
type Renderer struct {
	printer *message.Printer
}

// NewRenderer builds a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{printer: message.NewPrinter(language.French)}
}

// FormatAmount renders an amount with thousands grouping, e.g. 150000 ->
// "150 000".
func (r *Renderer) FormatAmount(amount int64) string {
	return r.printer.Sprintf("%d", amount)
}

// Render produces the single-line text form of a receipt.
func (r *Renderer) Render(l Line) string {
	return r.printer.Sprintf("%s  %s  %s  %d  %s",
		l.Number, l.PaidAt.Format("02/01/2006"), l.StudentName, l.Amount, l.TrancheName)
}
