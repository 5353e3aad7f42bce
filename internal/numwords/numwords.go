// Package numwords spells cardinal numbers in French for the legal
// amount-in-words line of printed invoices.
package numwords

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// CurrencySuffix is appended to every spelled invoice amount.
const CurrencySuffix = " dinar(s) algérien(s)"

var ones = [...]string{
	"", "un", "deux", "trois", "quatre", "cinq", "six", "sept", "huit", "neuf",
	"dix", "onze", "douze", "treize", "quatorze", "quinze", "seize", "dix-sept", "dix-huit", "dix-neuf",
}

var tens = [...]string{
	"", "dix", "vingt", "trente", "quarante", "cinquante", "soixante", "soixante-dix", "quatre-vingt", "quatre-vingt-dix",
}

// French returns the French cardinal words for n. Zero is "zéro" and
// negative values are prefixed with "moins".
func French(n int64) string {
	if n == 0 {
		return "zéro"
	}
	if n < 0 {
		// -(n+1)+1 keeps math.MinInt64 representable.
		return "moins " + spell(uint64(-(n+1))+1)
	}
	return spell(uint64(n))
}

func spell(n uint64) string {
	var b strings.Builder

	if n >= 1_000_000 {
		b.WriteString(spell(n / 1_000_000))
		b.WriteString(" million ")
		n %= 1_000_000
	}
	if n >= 1000 {
		thousands := n / 1000
		if thousands != 1 {
			b.WriteString(spell(thousands))
			b.WriteByte(' ')
		}
		b.WriteString("mille ")
		n %= 1000
	}
	if n >= 100 {
		hundreds := n / 100
		if hundreds == 1 {
			b.WriteString("cent ")
		} else {
			b.WriteString(spell(hundreds))
			b.WriteString(" cent ")
		}
		n %= 100
	}
	switch {
	case n >= 20:
		writeTens(&b, int(n/10), int(n%10))
	case n > 0:
		b.WriteString(ones[n])
	}
	return strings.TrimSpace(b.String())
}

// writeTens handles 20..99. Seventy and ninety borrow the teen words of the
// previous ten; eighty takes a plural "s" only when it stands alone.
func writeTens(b *strings.Builder, t, o int) {
	switch t {
	case 7, 9:
		b.WriteString(tens[t-1])
		if t == 7 && o == 1 {
			b.WriteString(" et ")
		} else {
			b.WriteByte('-')
		}
		b.WriteString(ones[10+o])
	case 8:
		b.WriteString("quatre-vingt")
		if o > 0 {
			b.WriteByte('-')
			b.WriteString(ones[o])
		} else {
			b.WriteByte('s')
		}
	default:
		b.WriteString(tens[t])
		switch {
		case o == 1:
			b.WriteString(" et ")
		case o > 0:
			b.WriteByte('-')
		}
		b.WriteString(ones[o])
	}
}

// AmountInWords spells the integral part of amount (centimes are not spelled
// out), capitalises it and appends the dinar suffix.
func AmountInWords(amount decimal.Decimal) string {
	words := French(amount.Floor().IntPart())
	return capitalize(words) + CurrencySuffix
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
