package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

// Wire names of the instrument fields, used in validation errors.
const (
	FieldHolderName       = "cardHolderName"
	FieldNumber           = "cardNumber"
	FieldExpiry           = "expiryDate"
	FieldVerificationCode = "cvv"
	FieldCardType         = "cardType"
)

const cardNumberLength = 16

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/([0-9]{2})$`)

// cardTypes are the networks the payment page lets the payer pick.
var cardTypes = []string{"visa", "mastercard", "rupay", "amex"}

// Instrument is the card-like data submitted by the payment page.
type Instrument struct {
	HolderName       string
	Number           string
	Expiry           string
	VerificationCode string
	// Type is the network picked on the payment page. Optional.
	Type             string
}

// normalize validates the instrument against now and returns the form that is
// persisted: trimmed holder name, digits-only number, expiry verbatim.
func (in Instrument) normalize(now time.Time) (Instrument, error) {
	out := Instrument{
		HolderName:       strings.Join(strings.Fields(in.HolderName), " "),
		Number:           stripSeparators(in.Number),
		Expiry:           strings.TrimSpace(in.Expiry),
		VerificationCode: strings.TrimSpace(in.VerificationCode),
		Type:             strings.ToLower(strings.TrimSpace(in.Type)),
	}

	if out.HolderName == "" {
		return out, validationError(FieldHolderName, "card holder name is required")
	}
	if !govalidator.IsAlpha(strings.ReplaceAll(out.HolderName, " ", "")) {
		return out, validationError(FieldHolderName, "card holder name may only contain letters and spaces")
	}

	if len(out.Number) != cardNumberLength || !govalidator.IsNumeric(out.Number) {
		return out, validationError(FieldNumber, "card number must be 16 digits")
	}

	if err := checkExpiry(out.Expiry, now); err != nil {
		return out, err
	}

	if len(out.VerificationCode) != 3 || !govalidator.IsNumeric(out.VerificationCode) {
		return out, validationError(FieldVerificationCode, "cvv must be 3 digits")
	}

	if out.Type != "" && !govalidator.IsIn(out.Type, cardTypes...) {
		return out, validationError(FieldCardType, "unsupported card type")
	}

	return out, nil
}

// checkExpiry accepts MM/YY for the current month or later. A card is valid
// through the last day of its expiry month.
func checkExpiry(expiry string, now time.Time) error {
	m := expiryPattern.FindStringSubmatch(expiry)
	if m == nil {
		return validationError(FieldExpiry, "expiry must be in MM/YY format")
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	year += 2000

	if year*12+month < now.Year()*12+int(now.Month()) {
		return validationError(FieldExpiry, "card expired")
	}
	return nil
}

func stripSeparators(number string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-':
			return -1
		}
		return r
	}, strings.TrimSpace(number))
}
