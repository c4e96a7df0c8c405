package fees

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/crypto"
)

func testRecipientBech32(t *testing.T) string {
	t.Helper()
	return crypto.MustNewAddress(testRecipient()).String()
}

func TestParseFile(t *testing.T) {
	raw := []byte(`
schedules:
  Standard:
    commissionBps: 250
    listingFeeBps: 100
    recipient: ` + testRecipientBech32(t) + `
  promo:
    commissionBps: 0
    listingFeeBps: 0
    recipient: ` + testRecipientBech32(t) + `
`)
	schedules, err := parseFile(raw)
	require.NoError(t, err)
	require.Len(t, schedules, 2)

	standard, ok := schedules["standard"]
	require.True(t, ok, "ids are normalised to lower case")
	requireAmount(t, standard.Commission(big.NewInt(10_000)), 250)
	require.Equal(t, testRecipient(), standard.FeeRecipient())

	promo, ok := schedules["promo"]
	require.True(t, ok)
	requireAmount(t, promo.Commission(big.NewInt(10_000)), 0)
}

func TestParseFileRejectsBadRecipient(t *testing.T) {
	raw := []byte(`
schedules:
  standard:
    commissionBps: 250
    listingFeeBps: 100
    recipient: not-an-address
`)
	_, err := parseFile(raw)
	require.Error(t, err)
}

func TestParseFileRejectsOutOfRangeBps(t *testing.T) {
	raw := []byte(`
schedules:
  standard:
    commissionBps: 20000
    listingFeeBps: 100
    recipient: ` + testRecipientBech32(t) + `
`)
	_, err := parseFile(raw)
	require.Error(t, err)
}

func TestParseFileRejectsEmpty(t *testing.T) {
	_, err := parseFile([]byte("schedules: {}\n"))
	require.Error(t, err)
}
