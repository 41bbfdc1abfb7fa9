package notification

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		id     string
		amount string
		number string
	}{
		{
			name:   "operator message",
			text:   "Vous avez recu 500 FCFA du 55713380, nouveau solde: 12500 FCFA. Trans ID: ABC123",
			id:     "ABC123",
			amount: "500",
			number: "55713380",
		},
		{
			name:   "accented and multi-line",
			text:   "Vous avez reçu 1500 FCFA du 70112233.\nNouveau solde 3000 FCFA.\nTrans ID: PP240101.1200.C45678.",
			id:     "PP240101.1200.C45678",
			amount: "1500",
			number: "70112233",
		},
		{
			name:   "thousands separator and decimals",
			text:   "VOUS AVEZ RECU 12 500,50 FCFA du 66554433 le 01/01. Transaction ID : XYZ9",
			id:     "XYZ9",
			amount: "12500.50",
			number: "66554433",
		},
		{
			name:   "hyphenated id",
			text:   "Vous avez recu 500 FCFA du 55713380. Trans ID: OM-0001-XY.",
			id:     "OM-0001-XY",
			amount: "500",
			number: "55713380",
		},
		{
			name:   "underscore id followed by text",
			text:   "Vous avez recu 750 FCFA du 55713380, Trans ID: ABC_123, merci.",
			id:     "ABC_123",
			amount: "750",
			number: "55713380",
		},
		{
			name:   "dot groups thousands",
			text:   "Vous avez recu 1.500 FCFA du 70112233, Trans ID: T1",
			id:     "T1",
			amount: "1500",
			number: "70112233",
		},
		{
			name:   "grouped thousands with fraction",
			text:   "Vous avez recu 1.250.000,5 FCFA du 70112233, Trans ID: T2",
			id:     "T2",
			amount: "1250000.5",
			number: "70112233",
		},
		{
			name:   "comma fraction",
			text:   "Vous avez recu 2,50 FCFA du 70112233, Trans ID: T3",
			id:     "T3",
			amount: "2.50",
			number: "70112233",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.id, n.TransactionID)
			assert.Equal(t, tt.number, n.Number)
			assert.True(t, decimal.RequireFromString(tt.amount).Equal(n.Amount), "amount %s", n.Amount)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	texts := []string{
		"",
		"hello",
		"Vous avez recu 500 FCFA du 55713380",
		"Vous avez recu FCFA du 55713380, Trans ID: ABC123",
		"Vous avez recu 500 FCFA du , Trans ID: ABC123",
		"Vous avez recu 0 FCFA du 55713380, Trans ID: ABC123",
		"Vous avez envoye 500 FCFA au 55713380, Trans ID: ABC123",
		"Vous avez recu 500 FCFA du 55713380, Trans ID: ABC#123",
		"Vous avez recu 500 FCFA du 55713380, Trans ID: -ABC123",
		"Vous avez recu 500 FCFA du 55713380, Trans ID: " + strings.Repeat("A", 65),
		"Vous avez recu 500.555 FCFA du 55713380, Trans ID: ABC123",
		"Vous avez recu 1.5000 FCFA du 55713380, Trans ID: ABC123",
		"Vous avez recu 1.500.50 FCFA du 55713380, Trans ID: ABC123",
		"Vous avez recu 1500.000 FCFA du 55713380, Trans ID: ABC123",
		"Vous avez recu 1,500.000 FCFA du 55713380, Trans ID: ABC123",
		"Vous avez recu 500. FCFA du 55713380, Trans ID: ABC123",
	}

	for _, text := range texts {
		n, err := Parse(text)
		assert.ErrorIs(t, err, ErrUnparseable, "text %q", text)
		assert.Equal(t, Notification{}, n, "text %q", text)
	}
}

func TestParse_DistinctIDsSharingPrefix(t *testing.T) {
	a, err := Parse("Vous avez recu 500 FCFA du 55713380, Trans ID: OM-0001")
	require.NoError(t, err)
	b, err := Parse("Vous avez recu 500 FCFA du 55713380, Trans ID: OM-0002")
	require.NoError(t, err)

	assert.Equal(t, "OM-0001", a.TransactionID)
	assert.Equal(t, "OM-0002", b.TransactionID)
}
