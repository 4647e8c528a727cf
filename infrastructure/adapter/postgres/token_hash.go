package postgres

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"github.com/lib/pq"
)

// unique_violation, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const uniqueViolation pq.ErrorCode = "23505"

// hashToken is what gets stored for refresh and reset tokens; the plaintext
// never reaches the database.
func hashToken(raw, salt string) string {
	sum := sha256.Sum256([]byte(raw + salt))
	return hex.EncodeToString(sum[:])
}

func tokenMatches(storedHash, raw, salt string) bool {
	if storedHash == "" || raw == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(hashToken(raw, salt))) == 1
}

// uniqueConstraint returns the violated constraint name, or "" when err is
// not a unique violation.
func uniqueConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint
	}
	return ""
}
