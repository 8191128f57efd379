package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceNumber(t *testing.T) {
	month := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	got, err := InvoiceNumber(InvoiceNumberTemplate("CBL"), month, 42)
	require.NoError(t, err)
	assert.Equal(t, "CBL-202403-000042", got)

	got, err = InvoiceNumber(InvoiceNumberTemplate(""), month, 1234567)
	require.NoError(t, err)
	assert.Equal(t, "INV-202403-1234567", got)

	_, err = InvoiceNumber(InvoiceNumberTemplate("INV"), month, 0)
	require.Error(t, err)

	_, err = InvoiceNumber("INV-{DD}", month, 1)
	require.Error(t, err)
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "300.00", Amount(30000))
	assert.Equal(t, "0.05", Amount(5))
	assert.Equal(t, "-12.50", Amount(-1250))
	assert.Equal(t, "Rs. 1.00", Rupees(100))
}
