package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifyWebhookSignature checks the Mercado Pago x-signature header:
// "ts=<unix>,v1=<hmac>", where v1 = HMAC-SHA256 over the manifest
// "id:<data_id>;request-id:<x-request-id>;ts:<ts>;".
//
// Validation is advisory: the scheme is not stable across provider product
// lines, so callers log a failure and still process the notification.
func VerifyWebhookSignature(secret, signatureHeader, requestID, dataID string) bool {
	if secret == "" || signatureHeader == "" {
		return false
	}

	var ts, v1 string
	for _, part := range strings.Split(signatureHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if ts == "" || v1 == "" {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(manifest))
	expected := hex.EncodeToString(h.Sum(nil))

	return strings.EqualFold(expected, v1)
}
