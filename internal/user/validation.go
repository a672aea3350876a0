package user

import (
	"regexp"
	"unicode/utf8"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{4,32}$`)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

// ValidUsername はユーザー名が英数字・アンダースコア・ハイフンのみの4〜32文字であるかを返す。
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// ValidPassword はパスワードが強度要件を満たすかを返す。
// 8文字以上で、ASCIIの大文字・小文字・数字と、それ以外の文字をそれぞれ1文字以上含む必要がある。
func ValidPassword(password string) bool {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return false
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case 'a' <= r && r <= 'z':
			hasLower = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}
