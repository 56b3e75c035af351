package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	evm := "0x9A1F78C3D4E5B2A60718293A4B5C6D7E8F901234"
	assert.Equal(t, "0x9a1f78c3d4e5b2a60718293a4b5c6d7e8f901234", NormalizeAddress("ethereum", evm))

	// base58 is case sensitive, so non-EVM addresses must not be touched.
	sol := "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	assert.Equal(t, sol, NormalizeAddress("solana", sol))
}

func TestWalletValidate(t *testing.T) {
	w := Wallet{
		Address: "0x9a1f78c3d4e5b2a60718293a4b5c6d7e8f901234",
		Chain:   "ethereum",
		Source:  "s3_drop",
	}
	require.NoError(t, w.Validate())

	w.Address = "not-an-address"
	err := w.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidWallet)

	w.Address = "   "
	assert.ErrorIs(t, w.Validate(), ErrInvalidWallet)

	// Other chains only need a non-empty address.
	w = Wallet{Address: "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", Chain: "solana"}
	assert.NoError(t, w.Validate())
}
