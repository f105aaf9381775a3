package domain

// CardNumberLength is the length of an issued card number.
const CardNumberLength = 16

// LuhnChecksum returns the check digit that makes digits+checksum Luhn-valid.
// digits must contain only ASCII decimal digits.
func LuhnChecksum(digits string) int {
	// the check digit will be appended, so doubling starts from the last digit
	sum := luhnSum(digits, len(digits)%2 == 1)
	if sum%10 == 0 {
		return 0
	}
	return 10 - sum%10
}

// ValidCardNumber reports whether number is a 16-digit Luhn-valid card number.
func ValidCardNumber(number string) bool {
	if len(number) != CardNumberLength {
		return false
	}
	for i := 0; i < len(number); i++ {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
	}
	return luhnSum(number, len(number)%2 == 0)%10 == 0
}

func luhnSum(digits string, doubleEven bool) int {
	sum := 0
	for i := 0; i < len(digits); i++ {
		n := int(digits[i] - '0')
		if (i%2 == 0) == doubleEven {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
	}
	return sum
}
