package user

import "unicode/utf8"

var strengthLabels = [...]string{"", "Very weak", "Weak", "Medium", "Strong"}

// PasswordStrength scores pwd from 0 (empty) to 4. The score is advisory only.
func PasswordStrength(pwd string) int {
	n := utf8.RuneCountInString(pwd)
	if n == 0 {
		return 0
	}
	if n < pwdMinLen {
		return 1
	}

	var score int
	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range pwd {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z':
		default:
			hasSymbol = true
		}
	}
	if n >= 8 {
		score++
	}
	for _, ok := range []bool{hasUpper, hasDigit, hasSymbol} {
		if ok {
			score++
		}
	}
	if score+1 > 4 {
		return 4
	}
	return score + 1
}

func PasswordStrengthLabel(score int) string {
	if score < 0 || score >= len(strengthLabels) {
		return ""
	}
	return strengthLabels[score]
}
