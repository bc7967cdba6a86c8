package utils

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

// PasswordProblems 返回密码强度不满足的规则（空表示通过）
func PasswordProblems(pw string) []string {
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	var out []string
	if len([]rune(pw)) < 8 {
		out = append(out, "password must be at least 8 characters")
	}
	if !upper {
		out = append(out, "password must contain an uppercase letter")
	}
	if !lower {
		out = append(out, "password must contain a lowercase letter")
	}
	if !digit {
		out = append(out, "password must contain a number")
	}
	return out
}
