package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"pocketbook-server/src/models"

	"github.com/shopspring/decimal"
)

const (
	maxDescriptionLength = 255
	maxAmountDigits      = 10
)

var minAmount = decimal.New(1, -models.MoneyPlaces)

const (
	msgRequired       = "This field is required."
	msgNull           = "This field may not be null."
	msgBlank          = "This field may not be blank."
	msgInvalidString  = "Not a valid string."
	msgInvalidNumber  = "A valid number is required."
	msgInvalidDate    = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	msgDescriptionLen = "Ensure this field has no more than 255 characters."
)

// FieldErrors maps a payload field to its violation messages.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], " "))
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

// PayloadError reports a body that is not valid JSON at all.
type PayloadError struct {
	Err error
}

func (e *PayloadError) Error() string {
	return "JSON parse error - " + e.Err.Error()
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

// ParseTransactionPayload validates a JSON transaction body. In full mode every
// field is required; in partial mode only the fields present are validated and
// returned. Unknown fields are ignored. Validation failures are returned as
// FieldErrors, malformed JSON as *PayloadError.
func ParseTransactionPayload(body []byte, partial bool) (models.TransactionPatch, error) {
	var patch models.TransactionPatch

	raw, err := decodeObject(body)
	if err != nil {
		return patch, err
	}

	errs := FieldErrors{}
	field := func(name string) (json.RawMessage, bool) {
		v, ok := raw[name]
		if !ok {
			if !partial {
				errs.Add(name, msgRequired)
			}
			return nil, false
		}
		if isNull(v) {
			errs.Add(name, msgNull)
			return nil, false
		}
		return v, true
	}

	if v, ok := field("description"); ok {
		if desc, msg := parseDescription(v); msg != "" {
			errs.Add("description", msg)
		} else {
			patch.Description = &desc
		}
	}
	if v, ok := field("amount"); ok {
		if amount, msg := parseAmount(v); msg != "" {
			errs.Add("amount", msg)
		} else {
			patch.Amount = &amount
		}
	}
	if v, ok := field("type"); ok {
		if typ, msg := parseType(v); msg != "" {
			errs.Add("type", msg)
		} else {
			patch.Type = &typ
		}
	}
	if v, ok := field("date"); ok {
		if date, msg := parseDate(v); msg != "" {
			errs.Add("date", msg)
		} else {
			patch.Date = &date
		}
	}

	if len(errs) > 0 {
		return models.TransactionPatch{}, errs
	}
	return patch, nil
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var probe interface{}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&probe); err != nil {
		return nil, &PayloadError{Err: err}
	}
	if _, ok := probe.(map[string]interface{}); !ok {
		return nil, FieldErrors{
			"non_field_errors": {fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", jsonKind(probe))},
		}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &PayloadError{Err: err}
	}
	return raw, nil
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case []interface{}:
		return "list"
	case string:
		return "str"
	case json.Number:
		return "number"
	case bool:
		return "bool"
	}
	return "null"
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// scalar returns the text of a JSON string or number, and false for any
// other JSON kind.
func scalar(v json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func parseDescription(v json.RawMessage) (string, string) {
	s, ok := scalar(v)
	if !ok {
		return "", msgInvalidString
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", msgBlank
	}
	if utf8.RuneCountInString(s) > maxDescriptionLength {
		return "", msgDescriptionLen
	}
	return s, ""
}

func parseAmount(v json.RawMessage) (models.Money, string) {
	s, ok := scalar(v)
	if !ok {
		return models.Money{}, msgInvalidNumber
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return models.Money{}, msgInvalidNumber
	}
	if msg := checkPrecision(d); msg != "" {
		return models.Money{}, msg
	}
	if d.LessThan(minAmount) {
		return models.Money{}, fmt.Sprintf("Ensure this value is greater than or equal to %s.", minAmount.StringFixed(models.MoneyPlaces))
	}
	return models.NewMoney(d), ""
}

// checkPrecision enforces NUMERIC(10,2): at most ten significant digits, two
// of them after the decimal point.
func checkPrecision(d decimal.Decimal) string {
	coefficient := d.Coefficient()
	digitCount := len(coefficient.Abs(coefficient).String())
	exp := int(d.Exponent())

	var digits, places int
	switch {
	case exp >= 0:
		digits, places = digitCount+exp, 0
	case digitCount > -exp:
		digits, places = digitCount, -exp
	default:
		digits, places = -exp, -exp
	}

	maxWhole := maxAmountDigits - models.MoneyPlaces
	switch {
	case digits > maxAmountDigits:
		return fmt.Sprintf("Ensure that there are no more than %d digits in total.", maxAmountDigits)
	case places > models.MoneyPlaces:
		return fmt.Sprintf("Ensure that there are no more than %d decimal places.", models.MoneyPlaces)
	case digits-places > maxWhole:
		return fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", maxWhole)
	}
	return ""
}

func parseType(v json.RawMessage) (models.TransactionType, string) {
	s, ok := scalar(v)
	if !ok {
		s = strings.TrimSpace(string(v))
	}
	typ, ok := models.ParseTransactionType(s)
	if !ok {
		return "", fmt.Sprintf("%q is not a valid choice.", s)
	}
	return typ, ""
}

func parseDate(v json.RawMessage) (models.Date, string) {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return models.Date{}, msgInvalidDate
	}
	d, err := models.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return models.Date{}, msgInvalidDate
	}
	return d, ""
}
