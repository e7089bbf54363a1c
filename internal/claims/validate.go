package claims

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/shopspring/decimal"
)

// nricPattern matches Singapore NRIC and FIN numbers.
var nricPattern = regexp.MustCompile(`^[STFGM][0-9]{7}[A-Z]$`)

const dateLayout = "2006-01-02"

// NormalizeNRIC upper-cases an NRIC/FIN and checks its format.
func NormalizeNRIC(nric string) (string, error) {
	nric = strings.ToUpper(strings.TrimSpace(nric))
	if !nricPattern.MatchString(nric) {
		return "", fmt.Errorf("%w: %q", kerrors.ErrInvalidNRIC, nric)
	}
	return nric, nil
}

// NormalizeFee parses a fee as a non-negative decimal and renders it with two places.
func NormalizeFee(fee string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(fee))
	if err != nil {
		return "", fmt.Errorf("%w: %q", kerrors.ErrInvalidFee, fee)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("%w: %q is negative", kerrors.ErrInvalidFee, fee)
	}
	if !d.Equal(d.Round(2)) {
		return "", fmt.Errorf("%w: %q has more than two decimal places", kerrors.ErrInvalidFee, fee)
	}
	return d.StringFixed(2), nil
}

// NormalizeDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.Format(dateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(dateLayout), nil
	}
	return "", fmt.Errorf("%w: %q, expected YYYY-MM-DD", kerrors.ErrInvalidDate, s)
}

// requireFields reports the first empty field in name order.
func requireFields(fields map[string]string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if strings.TrimSpace(fields[name]) == "" {
			return fmt.Errorf("%w: %s", kerrors.ErrMissingParameter, name)
		}
	}
	return nil
}
