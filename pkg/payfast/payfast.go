// Package payfast implements the PayFast redirect payload and the signature
// scheme used by its Instant Transaction Notification (ITN) webhook.
package payfast

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gemvault/gemvault-backend/pkg/config"
)

// Field is one ordered key/value pair of a PayFast payload. Signatures are
// computed over fields in the order they appear, so a map cannot carry them.
type Field struct {
	Key   string
	Value string
}

// Sign computes the MD5 hex signature over the given fields. Empty values are
// skipped, values are URL-encoded with spaces as '+', and the optional
// passphrase is appended last, per the gateway's canonical form.
func Sign(fields []Field, passphrase string) string {
	var b strings.Builder
	for _, f := range fields {
		if f.Value == "" || f.Key == "signature" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(encode(f.Value))
	}
	if passphrase != "" {
		b.WriteString("&passphrase=")
		b.WriteString(encode(passphrase))
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the signature over fields (excluding the
// signature field itself) and compares it to the supplied value in constant
// time. A missing signature always fails.
func VerifySignature(fields []Field, passphrase, signature string) bool {
	if signature == "" {
		return false
	}
	expected := Sign(fields, passphrase)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}

func encode(value string) string {
	return url.QueryEscape(strings.TrimSpace(value))
}

// ParseITNBody decodes an application/x-www-form-urlencoded ITN body while
// preserving field order.
func ParseITNBody(raw []byte) ([]Field, error) {
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return nil, nil
	}
	var fields []Field
	for _, part := range strings.Split(body, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			return nil, err
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Key: decodedKey, Value: decodedValue})
	}
	return fields, nil
}

// Lookup returns the first value for key among fields.
func Lookup(fields []Field, key string) string {
	for _, f := range fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// RedirectPayload is the signed form a buyer is forwarded to the gateway with.
type RedirectPayload struct {
	ProcessURL string            `json:"process_url"`
	Fields     []Field           `json:"-"`
	Form       map[string]string `json:"fields"`
	Signature  string            `json:"signature"`
}

// BuildRedirect assembles the checkout redirect for an order.
func BuildRedirect(cfg config.PayFastConfig, orderNumber, buyerFirstName, itemName string, amount decimal.Decimal) RedirectPayload {
	fields := []Field{
		{Key: "merchant_id", Value: cfg.MerchantID},
		{Key: "merchant_key", Value: cfg.MerchantKey},
		{Key: "return_url", Value: cfg.ReturnURL},
		{Key: "cancel_url", Value: cfg.CancelURL},
		{Key: "notify_url", Value: cfg.NotifyURL},
		{Key: "name_first", Value: buyerFirstName},
		{Key: "m_payment_id", Value: orderNumber},
		{Key: "amount", Value: amount.StringFixed(2)},
		{Key: "item_name", Value: itemName},
	}
	signature := Sign(fields, cfg.Passphrase)

	form := make(map[string]string, len(fields)+1)
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		form[f.Key] = f.Value
	}
	form["signature"] = signature

	return RedirectPayload{
		ProcessURL: cfg.ProcessURL,
		Fields:     fields,
		Form:       form,
		Signature:  signature,
	}
}
