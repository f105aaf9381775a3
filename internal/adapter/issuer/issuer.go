// Package issuer hands out new card numbers and PINs.
package issuer

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/iho/cardbank/internal/domain"
)

// DefaultIIN is the issuer identification number every card starts with.
const DefaultIIN = "400000"

const pinLength = 4

// LuhnIssuer issues 16-digit card numbers with a fixed IIN, random account
// digits and a Luhn check digit.
type LuhnIssuer struct {
	iin string

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a LuhnIssuer.
type Option func(*LuhnIssuer)

// WithSource replaces the random source, mostly for deterministic tests.
func WithSource(src rand.Source) Option {
	return func(i *LuhnIssuer) {
		i.rnd = rand.New(src)
	}
}

// NewLuhnIssuer creates a new LuhnIssuer. iin must be numeric and leave room
// for at least one account digit and the check digit.
func NewLuhnIssuer(iin string, opts ...Option) (*LuhnIssuer, error) {
	if iin == "" || len(iin) >= domain.CardNumberLength-1 || strings.Trim(iin, "0123456789") != "" {
		return nil, fmt.Errorf("invalid IIN %q", iin)
	}

	i := &LuhnIssuer{
		iin: iin,
		rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

// Issue returns a fresh card number and PIN. Uniqueness is not checked here;
// the store rejects collisions.
func (i *LuhnIssuer) Issue() (string, string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var b strings.Builder
	b.Grow(domain.CardNumberLength)
	b.WriteString(i.iin)

	for b.Len() < domain.CardNumberLength-1 {
		b.WriteByte(byte('0' + i.rnd.IntN(10)))
	}

	body := b.String()
	number := body + string(rune('0'+domain.LuhnChecksum(body)))

	pin := fmt.Sprintf("%0*d", pinLength, i.rnd.IntN(10000))

	return number, pin, nil
}

// Valid reports whether number is a well-formed card number.
func (i *LuhnIssuer) Valid(number string) bool {
	return domain.ValidCardNumber(number)
}
