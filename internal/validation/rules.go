package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Required fails when value is empty or only whitespace.
func Required(field, value string) *Error {
	if strings.TrimSpace(value) == "" {
		return NewError(fmt.Sprintf("The %s field is required.", field), field)
	}
	return nil
}

// MaxLength fails when value has more than max characters.
func MaxLength(field, value string, max int) *Error {
	if utf8.RuneCountInString(value) > max {
		return NewError(fmt.Sprintf("The field %s must be a string with a maximum length of %d.", field, max), field)
	}
	return nil
}

// CustomerNrChecksum checks that a customer number consists of digits only
// and that the sum of its digits is divisible by 10.
// Empty values pass; combine with Required when the field is mandatory.
func CustomerNrChecksum(field, value string) *Error {
	if value == "" {
		return nil
	}
	sum := 0
	for _, r := range value {
		if r < '0' || r > '9' {
			return NewError("CustomerNr enthält nicht nur Ziffern", field)
		}
		sum += int(r - '0')
	}
	if sum%10 != 0 {
		return NewError("Checksumme stimmt nicht", field)
	}
	return nil
}

// NamesLength fails when the combined length of first and last name is below min.
func NamesLength(firstField, firstName, lastField, lastName string, min int) *Error {
	if utf8.RuneCountInString(firstName)+utf8.RuneCountInString(lastName) < min {
		return NewError(
			fmt.Sprintf("%s und %s müssen zusammen mindestens %d Zeichen lang sein", firstField, lastField, min),
			firstField, lastField,
		)
	}
	return nil
}
