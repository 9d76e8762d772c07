package middlewares

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"wagerd/config"
	"wagerd/helpers"

	"github.com/gofiber/fiber/v2"
)

// MasterSignature is the signature admin requests must carry:
// hex(HMAC-SHA256(secret, code+secret)).
func MasterSignature(master config.MasterConfig) string {
	h := hmac.New(sha256.New, []byte(master.Secret))
	h.Write([]byte(master.Code + master.Secret))
	return hex.EncodeToString(h.Sum(nil))
}

// MasterAuth admits requests whose body carries the master signature.
func MasterAuth(master config.MasterConfig) fiber.Handler {
	expected := []byte(MasterSignature(master))
	return func(c *fiber.Ctx) error {
		var body struct {
			Signature string `json:"signature"`
		}
		if err := c.BodyParser(&body); err != nil {
			return helpers.JSONError(c, "INVALID_JSON")
		}
		if !hmac.Equal([]byte(body.Signature), expected) {
			return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_SIGNATURE")
		}
		return c.Next()
	}
}
