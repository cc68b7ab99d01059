package entity

import (
	"math/big"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"dapp/internal/crypto"
	"dapp/internal/domain"
)

const (
	minTitleLength       = 3
	minDescriptionLength = 20
	summaryLength        = 100
)

// validator collects field errors.
type validator struct {
	fields map[string]string
}

func (v *validator) fail(field, msg string) {
	if v.fields == nil {
		v.fields = map[string]string{}
	}
	if _, ok := v.fields[field]; !ok {
		v.fields[field] = msg
	}
}

func (v *validator) required(field, value, msg string) {
	if strings.TrimSpace(value) == "" {
		v.fail(field, msg)
	}
}

func (v *validator) minLength(field, value string, n int, msg string) {
	if utf8.RuneCountInString(strings.TrimSpace(value)) < n {
		v.fail(field, msg)
	}
}

func (v *validator) url(field, value, msg string) {
	if value == "" {
		return
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.fail(field, msg)
	}
}

// address validates an optional address and returns its checksummed form.
func (v *validator) address(field, value, msg string) domain.Address {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	a, err := crypto.ParseAddress(value)
	if err != nil {
		v.fail(field, msg)
		return ""
	}
	return a
}

// positiveAmount validates a decimal integer amount greater than zero and
// returns it normalised.
func (v *validator) positiveAmount(field, value, msg string) string {
	n, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || n.Sign() <= 0 {
		v.fail(field, msg)
		return ""
	}
	return n.String()
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// validateText checks the title and description shared by every form. The
// description is measured as plain text.
func validateText(v *validator, title, description string) {
	v.required("title", title, "Please provide a title.")
	v.minLength("title", title, minTitleLength, "Please provide at least 3 characters.")
	v.required("description", description, "Please describe your cause.")
	v.minLength("description", PlainText(description), minDescriptionLength, "Please provide at least 20 characters.")
}

// PlainText returns the text content of an HTML fragment with runs of
// whitespace collapsed.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
			b.WriteByte(' ')
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

// Summary returns the plain text of description truncated to the summary
// length, with an ellipsis when cut.
func Summary(description string) string {
	text := PlainText(description)
	if utf8.RuneCountInString(text) <= summaryLength {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:summaryLength])) + "..."
}
