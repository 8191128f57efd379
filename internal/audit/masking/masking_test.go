package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("1234"))
	assert.Equal(t, "****7890", MaskSecret("UPI1234567890"))
	assert.Equal(t, "TXN-****7890", MaskSecret("TXN-1234567890"))
}

func TestMaskFieldsOnlyTouchesNamedKeys(t *testing.T) {
	in := map[string]any{
		"transaction_id": "412345678901",
		"amount_paid":    int64(30000),
		"method":         "upi",
		" ":              "dropped",
	}

	out := MaskFields(in, "transaction_id")
	assert.Equal(t, "****8901", out["transaction_id"])
	assert.Equal(t, int64(30000), out["amount_paid"])
	assert.Equal(t, "upi", out["method"])
	assert.NotContains(t, out, " ")
	assert.Equal(t, "412345678901", in["transaction_id"])

	assert.Nil(t, MaskFields(nil, "transaction_id"))
}
