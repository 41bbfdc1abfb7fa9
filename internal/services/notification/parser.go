// Package notification extracts transfer details from the SMS text sent by
// the mobile-money operator on every incoming payment.
package notification

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

var ErrUnparseable = errors.New("unparseable transfer notification")

// Notification holds the fields of one incoming-transfer message.
type Notification struct {
	TransactionID string
	Amount        decimal.Decimal
	Number        string
}

// e.g. "Vous avez recu 500 FCFA du 55713380, ... Trans ID: ABC123"
var transferPattern = regexp.MustCompile(
	`(?is)vous\s+avez\s+re(?:c|ç)u\s+(\d[\d \x{00A0}\x{202F}.,]*)\s*FCFA\s+du\s+(?:num[eé]ro\s+)?(\d+)\b.*?trans(?:action)?\s*id\s*:\s*(\S+)`,
)

var (
	transactionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	amountGroupSeparator = regexp.MustCompile(`[.,]`)
	amountSpaces         = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "")
)

// Size of the transfers.transaction_id column.
const maxTransactionIDLen = 64

// Parse returns the transfer described by text, or ErrUnparseable.
func Parse(text string) (Notification, error) {
	m := transferPattern.FindStringSubmatch(text)
	if m == nil {
		return Notification{}, ErrUnparseable
	}

	rawAmount, ok := normalizeAmount(m[1])
	if !ok {
		return Notification{}, errors.Wrapf(ErrUnparseable, "amount %q", m[1])
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return Notification{}, errors.Wrapf(ErrUnparseable, "amount %q", m[1])
	}
	if !amount.IsPositive() {
		return Notification{}, errors.Wrapf(ErrUnparseable, "amount %q is not positive", m[1])
	}

	id := strings.TrimRight(m[3], `.,;:!?)"'`)
	if !transactionIDPattern.MatchString(id) || len(id) > maxTransactionIDLen {
		return Notification{}, errors.Wrapf(ErrUnparseable, "transaction id %q", m[3])
	}

	return Notification{
		TransactionID: id,
		Amount:        amount,
		Number:        m[2],
	}, nil
}

// normalizeAmount turns an operator amount into a plain decimal string.
// FCFA has no sub-unit in practice, so a '.' or ',' followed by exactly
// three digits groups thousands ("1.500" is 1500). A final separator
// followed by one or two digits starts the fraction ("12 500,50").
// Anything else, including a third fractional digit, is rejected.
func normalizeAmount(raw string) (string, bool) {
	s := strings.TrimSpace(amountSpaces.Replace(raw))

	idx := strings.LastIndexAny(s, ".,")
	if idx < 0 {
		return s, s != ""
	}

	intPart, frac := s, ""
	if n := len(s) - idx - 1; n != 3 {
		if n == 0 || n > 2 {
			return "", false
		}
		intPart, frac = s[:idx], s[idx+1:]
		if strings.IndexByte(intPart, s[idx]) >= 0 {
			return "", false
		}
	}

	if strings.ContainsRune(intPart, '.') && strings.ContainsRune(intPart, ',') {
		return "", false
	}
	groups := amountGroupSeparator.Split(intPart, -1)
	if len(groups) > 1 {
		if len(groups[0]) == 0 || len(groups[0]) > 3 {
			return "", false
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return "", false
			}
		}
	}

	digits := strings.Join(groups, "")
	if digits == "" {
		return "", false
	}
	if frac != "" {
		return digits + "." + frac, true
	}
	return digits, true
}
