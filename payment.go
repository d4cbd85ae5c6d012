package promissory

import (
	"github.com/iov-one/promissory/coin"
	"github.com/iov-one/promissory/errors"
)

// Payment is a single movement of the external payment asset, produced by
// the cash extension and inspected by the transition validation rules. The
// authenticity of a payment is the business of the payment asset ledger, only
// its shape is validated here.
type Payment struct {
	Recipient Condition `json:"recipient"`
	Amount    coin.Coin `json:"amount"`
}

// Validate ensures a payment has a recipient and a positive, well formed
// amount.
func (p Payment) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Recipient", p.Recipient.Validate())
	errs = errors.AppendField(errs, "Amount", p.Amount.Validate())
	if !p.Amount.IsPositive() {
		errs = errors.Append(errs,
			errors.Field("Amount", errors.ErrAmount, "must be positive"))
	}
	return errs
}

// SumPaymentsTo adds up all payments addressed to the given recipient, in the
// given currency. Payments in any other currency addressed to the same
// recipient are an error, as they cannot be summed.
func SumPaymentsTo(payments []Payment, recipient Condition, ticker string) (coin.Coin, error) {
	total := coin.Coin{Ticker: ticker}
	for _, p := range payments {
		if !p.Recipient.Equals(recipient) {
			continue
		}
		sum, err := total.Add(p.Amount)
		if err != nil {
			return coin.Coin{}, errors.Wrap(err, "sum payments")
		}
		total = sum
	}
	return total, nil
}
