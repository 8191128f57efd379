package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

// InvoiceNumberTemplate builds the monthly numbering template for prefix,
// e.g. INV-{YYYY}{MM}-{SEQ6}.
func InvoiceNumberTemplate(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "INV"
	}
	return prefix + "-{YYYY}{MM}-{SEQ6}"
}

// InvoiceNumber renders template for the billing month and sequence value.
// It is pure and deterministic.
func InvoiceNumber(template string, billMonth time.Time, seq int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}

	out := template
	out = strings.ReplaceAll(out, "{YYYY}", billMonth.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", billMonth.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", billMonth.Format("01"))
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))
	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in invoice format: %s", out)
	}
	return out, nil
}
