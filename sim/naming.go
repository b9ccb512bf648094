package sim

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// A name is a dot-separated path of elements, such as "Core[0].TLB". Each
// element starts with a capital letter and may carry integer indices in
// square brackets.
var (
	errEmptyElement   = errors.New("element must not be empty")
	errLowercase      = errors.New("element must start with a capital letter")
	errBadIndex       = errors.New("index must be an integer in brackets")
	errForbiddenChars = errors.New("element must not contain _ - ' or \"")
)

// ValidateName tells why name does not follow the naming convention, or
// returns nil.
func ValidateName(name string) error {
	for _, element := range strings.Split(name, ".") {
		if err := validateElement(element); err != nil {
			return fmt.Errorf("name %q: %w", name, err)
		}
	}

	return nil
}

func validateElement(element string) error {
	base, indices, _ := strings.Cut(element, "[")

	switch {
	case base == "":
		return errEmptyElement
	case strings.ContainsAny(base, "_-'\""):
		return errForbiddenChars
	case base[0] < 'A' || base[0] > 'Z':
		return errLowercase
	case strings.Contains(base, "]"):
		return errBadIndex
	}

	if indices == "" {
		if strings.HasSuffix(element, "[") {
			return errBadIndex
		}

		return nil
	}

	for _, index := range strings.Split("["+indices, "[")[1:] {
		number, ok := strings.CutSuffix(index, "]")
		if !ok {
			return errBadIndex
		}

		if _, err := strconv.Atoi(number); err != nil {
			return errBadIndex
		}
	}

	return nil
}

// NameMustBeValid panics if the name does not follow the naming convention.
func NameMustBeValid(name string) {
	if err := ValidateName(name); err != nil {
		panic(err.Error())
	}
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
