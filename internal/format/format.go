// Package format renders market values for display.
package format

import (
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NoMaxSupply is shown for coins without a supply cap.
const NoMaxSupply = "No max supply"

var (
	printer = message.NewPrinter(language.English)

	// Market figures use K and B where SI has k and G.
	suffixes = []string{"", "K", "M", "B", "T", "P", "E"}
	thousand = decimal.NewFromInt(1000)

	positive = color.New(color.FgGreen)
	negative = color.New(color.FgRed)
)

// Millify renders v in compact form with up to two decimals, e.g. 1.23T or 456.7B.
// A value that rounds up to 1000 moves to the next suffix, so 999999 is 1M.
func Millify(v decimal.Decimal) string {
	scaled, i := v, 0
	for i < len(suffixes)-1 && scaled.Round(2).Abs().GreaterThanOrEqual(thousand) {
		scaled = scaled.Div(thousand)
		i++
	}
	return humanize.FtoaWithDigits(scaled.Round(2).InexactFloat64(), 2) + suffixes[i]
}

// USD renders v as dollars with grouped thousands and two decimals.
func USD(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Abs()
	}
	return sign + "$" + printer.Sprintf("%.2f", v.Round(2).InexactFloat64())
}

// Percent renders v as a signed percentage with two decimals.
func Percent(v decimal.Decimal) string {
	s := v.StringFixed(2) + "%"
	if v.Round(2).IsPositive() {
		return "+" + s
	}
	return s
}

// PercentOrDash renders a nullable percentage, using "-" when it is absent.
func PercentOrDash(v decimal.NullDecimal) string {
	if !v.Valid {
		return "-"
	}
	return Percent(v.Decimal)
}

// Trend colors s green when v is non-negative and red otherwise.
// Output is plain when the terminal does not support color.
func Trend(v decimal.Decimal, s string) string {
	if v.IsNegative() {
		return negative.Sprint(s)
	}
	return positive.Sprint(s)
}

// LinkHost returns the bare host of a link for use as its label.
func LinkHost(link string) string {
	link = strings.TrimSpace(link)
	host := link
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		host = u.Host
	} else {
		host = strings.TrimPrefix(host, "https://")
		host = strings.TrimPrefix(host, "http://")
		if i := strings.IndexAny(host, "/?#"); i >= 0 {
			host = host[:i]
		}
	}
	return strings.TrimPrefix(host, "www.")
}

// Summary returns the first three sentences of a description.
func Summary(text string) string {
	text = strings.TrimSpace(stripTags(text))
	if text == "" {
		return ""
	}
	sentences := strings.SplitN(text, ". ", 4)
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	out := strings.Join(sentences, ". ")
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}

// stripTags removes the anchor markup the provider embeds in descriptions.
func stripTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// MaxSupply renders a supply cap or NoMaxSupply.
func MaxSupply(v decimal.NullDecimal) string {
	if !v.Valid || v.Decimal.IsZero() {
		return NoMaxSupply
	}
	return Millify(v.Decimal)
}
