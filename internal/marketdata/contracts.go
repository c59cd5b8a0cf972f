package marketdata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"spx-backtester/internal/errors"
	"spx-backtester/internal/models"
)

// contractPrefix is the OCC-style root for same-day SPX weekly options.
const contractPrefix = "O:SPXW"

// Contract is a parsed option contract identifier.
type Contract struct {
	Expiry time.Time
	Type   models.OptionType
	Strike int
}

// FormatContract builds a contract identifier of the form
// O:SPXW<YYMMDD><C|P><8-digit-zero-padded-strike>, strike in integer dollars.
func FormatContract(expiry time.Time, typ models.OptionType, strike int) string {
	cp := "C"
	if typ == models.OptionPut {
		cp = "P"
	}
	return fmt.Sprintf("%s%s%s%08d", contractPrefix, expiry.Format("060102"), cp, strike)
}

// ParseContract decodes a contract identifier produced by FormatContract.
func ParseContract(id string) (Contract, error) {
	if !strings.HasPrefix(id, contractPrefix) {
		return Contract{}, fmt.Errorf("%w: %q", errors.ErrInvalidContract, id)
	}
	rest := id[len(contractPrefix):]
	// YYMMDD + C|P + 8 digits
	if len(rest) != 6+1+8 {
		return Contract{}, fmt.Errorf("%w: %q", errors.ErrInvalidContract, id)
	}

	expiry, err := time.Parse("060102", rest[:6])
	if err != nil {
		return Contract{}, fmt.Errorf("%w: %q: bad expiry", errors.ErrInvalidContract, id)
	}

	var typ models.OptionType
	switch rest[6] {
	case 'C':
		typ = models.OptionCall
	case 'P':
		typ = models.OptionPut
	default:
		return Contract{}, fmt.Errorf("%w: %q: bad type", errors.ErrInvalidContract, id)
	}

	strike, err := strconv.Atoi(rest[7:])
	if err != nil || strike <= 0 {
		return Contract{}, fmt.Errorf("%w: %q: bad strike", errors.ErrInvalidContract, id)
	}

	return Contract{Expiry: expiry, Type: typ, Strike: strike}, nil
}
