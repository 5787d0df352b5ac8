package utils

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// reservedNicknames are terms that would let a user impersonate staff or the
// system itself. Matching is case-insensitive on the whole nickname.
var reservedNicknames = map[string]bool{
	"admin":         true,
	"administrator": true,
	"moderator":     true,
	"root":          true,
	"system":        true,
	"crux":          true,
	"support":       true,
	"staff":         true,
}

var errNicknameReserved = errors.New("nickname is reserved")

// ValidateNickname checks the nickname rules: length 3-100 after trimming and
// not on the reserved blocklist. Returns a field-specific validation error.
func ValidateNickname(nickname string) error {
	nickname = strings.TrimSpace(nickname)
	return validation.Validate(nickname,
		validation.Required,
		validation.Length(3, 100),
		validation.By(notReserved),
	)
}

func notReserved(value interface{}) error {
	s, _ := value.(string)
	if reservedNicknames[strings.ToLower(s)] {
		return errNicknameReserved
	}
	return nil
}
