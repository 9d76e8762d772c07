package helpers

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) string {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[src.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// GenerateGameCode returns "WG" followed by the base36 millisecond clock and
// two random characters, upper-cased and capped at 16 bytes.
func GenerateGameCode(now time.Time) string {
	code := strings.ToUpper("WG" + strconv.FormatInt(now.UnixMilli(), 36) + randomBase36(2))
	if len(code) > 16 {
		code = code[:16]
	}
	return code
}

// GenerateSecret returns a fresh account secret. Only its bcrypt hash is
// stored.
func GenerateSecret() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
