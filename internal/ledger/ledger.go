package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidPlayer     = errors.New("invalid player")
)

// toCents converts a currency amount to whole cents, rejecting amounts that
// are not positive.
func toCents(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	c := int64(math.Round(amount * 100))
	if c <= 0 {
		return 0, ErrInvalidAmount
	}
	return c, nil
}

func fromCents(c int64) float64 { return float64(c) / 100 }

func playerKey(player string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(player))
	if p == "" {
		return "", ErrInvalidPlayer
	}
	return p, nil
}

func format(amount float64, currency string) string {
	if strings.TrimSpace(currency) == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}
