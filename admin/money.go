package admin

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MoneyFormatter renders totals in the shop currency for the admin table.
type MoneyFormatter struct {
	printer *message.Printer
	unit    currency.Unit
}

func NewMoneyFormatter(currencyCode, locale string) (*MoneyFormatter, error) {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("parsing currency %q: %w", currencyCode, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parsing locale %q: %w", locale, err)
	}
	return &MoneyFormatter{printer: message.NewPrinter(tag), unit: unit}, nil
}

func (f *MoneyFormatter) Format(amount decimal.Decimal) string {
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(amount.InexactFloat64())))
}

func (f *MoneyFormatter) Currency() string {
	return f.unit.String()
}
