package payfast

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemvault/gemvault-backend/pkg/config"
)

func sampleFields() []Field {
	return []Field{
		{Key: "merchant_id", Value: "10000100"},
		{Key: "merchant_key", Value: "46f0cd694581a"},
		{Key: "amount", Value: "100.00"},
		{Key: "item_name", Value: "Gem Order GV-1001"},
	}
}

func TestSign(t *testing.T) {
	t.Run("with passphrase", func(t *testing.T) {
		got := Sign(sampleFields(), "jt7NOE43FZPn")
		assert.Equal(t, "193c1b82d83baf0f5468da6f013bf2c9", got)
	})

	t.Run("without passphrase", func(t *testing.T) {
		got := Sign(sampleFields(), "")
		assert.Equal(t, "c79bfc2525845380c4fc945e30667b79", got)
	})

	t.Run("skips empty values", func(t *testing.T) {
		fields := append(sampleFields(), Field{Key: "name_last", Value: ""})
		assert.Equal(t, Sign(sampleFields(), ""), Sign(fields, ""))
	})

	t.Run("order matters", func(t *testing.T) {
		reversed := []Field{
			{Key: "item_name", Value: "Gem Order GV-1001"},
			{Key: "amount", Value: "100.00"},
			{Key: "merchant_key", Value: "46f0cd694581a"},
			{Key: "merchant_id", Value: "10000100"},
		}
		assert.NotEqual(t, Sign(sampleFields(), ""), Sign(reversed, ""))
	})
}

func TestVerifySignature(t *testing.T) {
	fields := sampleFields()
	sig := Sign(fields, "jt7NOE43FZPn")

	assert.True(t, VerifySignature(fields, "jt7NOE43FZPn", sig))
	assert.True(t, VerifySignature(append(fields, Field{Key: "signature", Value: sig}), "jt7NOE43FZPn", sig))
	assert.False(t, VerifySignature(fields, "jt7NOE43FZPn", "deadbeef"))
	assert.False(t, VerifySignature(fields, "wrong-passphrase", sig))
	assert.False(t, VerifySignature(fields, "jt7NOE43FZPn", ""))
}

func TestParseITNBody(t *testing.T) {
	fields, err := ParseITNBody([]byte("m_payment_id=GV-1001&payment_status=COMPLETE&amount_gross=100.00&item_name=Gem+Order"))
	require.NoError(t, err)
	require.Len(t, fields, 4)

	assert.Equal(t, "m_payment_id", fields[0].Key)
	assert.Equal(t, "GV-1001", fields[0].Value)
	assert.Equal(t, "Gem Order", Lookup(fields, "item_name"))
	assert.Equal(t, "", Lookup(fields, "missing"))
}

func TestBuildRedirect(t *testing.T) {
	cfg := config.PayFastConfig{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  "jt7NOE43FZPn",
		ProcessURL:  "https://sandbox.payfast.co.za/eng/process",
		ReturnURL:   "https://shop.example/payment-success",
		CancelURL:   "https://shop.example/payment-cancel",
		NotifyURL:   "https://api.example/payfast-itn",
	}

	payload := BuildRedirect(cfg, "GV-1001", "Amina", "Gemstone order GV-1001", decimal.NewFromFloat(1250.5))

	assert.Equal(t, cfg.ProcessURL, payload.ProcessURL)
	assert.Equal(t, "1250.50", payload.Form["amount"])
	assert.Equal(t, "GV-1001", payload.Form["m_payment_id"])
	assert.Equal(t, payload.Signature, payload.Form["signature"])
	assert.True(t, VerifySignature(payload.Fields, cfg.Passphrase, payload.Signature))
}
