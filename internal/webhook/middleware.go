package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// signatureHeader carries "t=<unix>,v1=<hex hmac>" on every Calendly delivery.
const signatureHeader = "Calendly-Webhook-Signature"

// maxWebhookBody bounds how much of a delivery we are willing to buffer.
const maxWebhookBody = 1 << 20

// CalendlySignatureMiddleware verifies the delivery's HMAC-SHA256 signature
// over "{t}.{rawBody}" before any handler sees the payload. The body is
// buffered and restored so handlers can still bind it. An empty secret
// disables verification, for local development against the Calendly CLI.
func CalendlySignatureMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		timestamp, signature, ok := parseSignatureHeader(c.GetHeader(signatureHeader))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed signature"})
			return
		}

		if !verifySignature(secret, timestamp, body, signature) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		c.Next()
	}
}

// parseSignatureHeader splits "t=...,v1=..." into its parts.
func parseSignatureHeader(header string) (timestamp, signature string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signature = value
		}
	}
	return timestamp, signature, timestamp != "" && signature != ""
}

func verifySignature(secret, timestamp string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
