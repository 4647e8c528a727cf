package valueobject

import "regexp"

const MsgEmailNotValid = "Email is not valid!"

var emailPattern = regexp.MustCompile(`^([\w\.\-]+)@([\w\-]+)((\.(\w){2,3})+)$`)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
