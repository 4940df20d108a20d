package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTripDefaultsCountry(t *testing.T) {
	addr := Address{Street: "Av. Paulista", Number: "1000", City: "Sao Paulo", State: "SP", PostalCode: "01310-100"}

	raw, err := addr.Value()
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, decoded.Scan(raw))
	assert.Equal(t, "BR", decoded.Country)
	assert.Equal(t, "Av. Paulista", decoded.Street)
	assert.NoError(t, decoded.Validate())
}

func TestAddressScanNilAndEmpty(t *testing.T) {
	addr := Address{Street: "x"}
	require.NoError(t, addr.Scan(nil))
	assert.True(t, addr.IsZero())

	require.NoError(t, addr.Scan(""))
	assert.True(t, addr.IsZero())

	assert.Error(t, addr.Scan(42))
}

func TestAddressValidateRequiresPostalDigits(t *testing.T) {
	addr := Address{Street: "Rua A", City: "Recife", State: "PE", PostalCode: "--"}
	assert.Error(t, addr.Validate())
	assert.Equal(t, "50030230", NormalizePostalCode("50030-230"))
}
