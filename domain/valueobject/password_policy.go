package valueobject

import (
	"regexp"
	"strings"
)

const MinPasswordLength = 8

const (
	MsgPasswordTooShort       = "Minimum password length should be greater or equal than 8"
	MsgPasswordNotAlphanum    = "Password should be Alphanumeric"
	MsgPasswordNoSpecialChars = "Password should contain special chars"
)

var (
	alphanumericPattern = regexp.MustCompile(`[a-zA-Z0-9]`)
	specialCharPattern  = regexp.MustCompile(`[~,!@#$%^&*()]`)
)

// CheckPasswordStrength returns every deficiency of password, each message
// terminated by a newline. An empty result means the password is acceptable.
func CheckPasswordStrength(password string) string {
	var sb strings.Builder

	if len([]rune(password)) < MinPasswordLength {
		sb.WriteString(MsgPasswordTooShort + "\n")
	}
	if !alphanumericPattern.MatchString(password) {
		sb.WriteString(MsgPasswordNotAlphanum + "\n")
	}
	if !specialCharPattern.MatchString(password) {
		sb.WriteString(MsgPasswordNoSpecialChars + "\n")
	}

	return sb.String()
}
