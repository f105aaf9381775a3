package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/cardbank/internal/domain"
)

// AccountService handles the account lifecycle and the caller-facing
// balance and transfer API. All balance mutation is delegated to the store.
type AccountService struct {
	store           LedgerStore
	issuer          CardIssuer
	idGen           IDGenerator
	metrics         Metrics
	logger          zerolog.Logger
	issueAttempts   int
	transferTimeout time.Duration
}

// Option configures an AccountService.
type Option func(*AccountService)

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *AccountService) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(s *AccountService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithIssueAttempts sets how many card numbers OpenAccount tries.
func WithIssueAttempts(n int) Option {
	return func(s *AccountService) {
		if n > 0 {
			s.issueAttempts = n
		}
	}
}

// WithTransferTimeout bounds each store transfer. Zero disables the bound.
func WithTransferTimeout(d time.Duration) Option {
	return func(s *AccountService) {
		s.transferTimeout = d
	}
}

// NewAccountService creates a new AccountService.
func NewAccountService(store LedgerStore, issuer CardIssuer, idGen IDGenerator, opts ...Option) *AccountService {
	s := &AccountService{
		store:         store,
		issuer:        issuer,
		idGen:         idGen,
		metrics:       nopMetrics{},
		logger:        zerolog.Nop(),
		issueAttempts: DefaultIssueAttempts,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateAccount issues a fresh card number and PIN and stores a zero-balance account.
// It fails with domain.ErrDuplicateIdentifier if the issued number collides.
func (s *AccountService) CreateAccount(ctx context.Context) (*domain.Account, error) {
	number, pin, err := s.issuer.Issue()
	if err != nil {
		return nil, fmt.Errorf("issue card: %w", err)
	}

	account := &domain.Account{
		OwnerID: s.idGen.Generate(),
		Number:  number,
		PIN:     pin,
		Balance: 0,
	}

	if err := s.store.Create(ctx, account); err != nil {
		return nil, err
	}

	s.metrics.AccountCreated()
	s.logger.Info().Str("owner_id", account.OwnerID).Str("card", account.Number).Msg("account created")

	return account, nil
}

// OpenAccount creates an account, retrying with a new card number while the
// issued number collides with an existing one.
func (s *AccountService) OpenAccount(ctx context.Context) (*domain.Account, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = issueInitialInterval
	b.MaxInterval = issueMaxInterval
	b.MaxElapsedTime = 0

	var (
		account *domain.Account
		attempt int
	)

	err := backoff.Retry(func() error {
		attempt++

		acc, err := s.CreateAccount(ctx)
		if err == nil {
			account = acc
			return nil
		}

		if !errors.Is(err, domain.ErrDuplicateIdentifier) {
			return backoff.Permanent(err)
		}

		s.logger.Warn().Int("attempt", attempt).Msg("card number collision, reissuing")

		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.issueAttempts-1)), ctx))
	if err != nil {
		return nil, err
	}

	return account, nil
}

// Authenticate reports whether an account with number exists and its PIN matches exactly.
func (s *AccountService) Authenticate(ctx context.Context, number, pin string) (bool, error) {
	account, err := s.store.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}

	return account.MatchesPIN(pin), nil
}

// Login returns the account with number if pin matches. Unknown cards and
// wrong PINs both fail with domain.ErrWrongCredentials.
func (s *AccountService) Login(ctx context.Context, number, pin string) (*domain.Account, error) {
	account, err := s.store.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrWrongCredentials
		}
		return nil, err
	}

	if !account.MatchesPIN(pin) {
		return nil, domain.ErrWrongCredentials
	}

	return account, nil
}

// Deposit adds amount to the account balance.
func (s *AccountService) Deposit(ctx context.Context, account *domain.Account, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	if err := s.store.Deposit(ctx, account.Number, amount); err != nil {
		s.logger.Error().Err(err).Str("card", account.Number).Int64("amount", amount).Msg("deposit failed")
		return err
	}

	s.metrics.DepositApplied(amount)
	s.logger.Info().Str("card", account.Number).Int64("amount", amount).Msg("deposit applied")

	return nil
}

// GetBalance returns the current balance of the account with number.
func (s *AccountService) GetBalance(ctx context.Context, number string) (int64, error) {
	account, err := s.store.GetByNumber(ctx, number)
	if err != nil {
		return 0, err
	}

	return account.Balance, nil
}

// CheckCard verifies that number is a well-formed card number of an existing account.
func (s *AccountService) CheckCard(ctx context.Context, number string) error {
	if !s.issuer.Valid(number) {
		return domain.ErrInvalidCardNumber
	}

	_, err := s.store.GetByNumber(ctx, number)

	return err
}

// Transfer moves amount from the sender card to the receiver card.
// The returned transfer carries its terminal status, also when err is not nil.
func (s *AccountService) Transfer(ctx context.Context, from, to string, amount int64) (*domain.Transfer, error) {
	start := time.Now()

	transfer := &domain.Transfer{
		ID:        s.idGen.Generate(),
		From:      from,
		To:        to,
		Amount:    amount,
		Status:    domain.TransferPending,
		CreatedAt: start.UTC(),
	}

	err := s.transfer(ctx, transfer)
	transfer.Status = domain.StatusFromError(err)

	elapsed := time.Since(start)
	s.metrics.TransferFinished(transfer, err, elapsed)

	event := s.logger.Info()
	if err != nil {
		event = s.logger.Warn().Err(err)
	}
	event.Str("transfer_id", transfer.ID).
		Str("from", from).
		Str("to", to).
		Int64("amount", amount).
		Str("status", string(transfer.Status)).
		Dur("elapsed", elapsed).
		Msg("transfer finished")

	return transfer, err
}

func (s *AccountService) transfer(ctx context.Context, t *domain.Transfer) error {
	if err := t.Validate(); err != nil {
		return err
	}

	for _, number := range []string{t.From, t.To} {
		if _, err := s.store.GetByNumber(ctx, number); err != nil {
			return err
		}
	}

	if s.transferTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.transferTimeout)
		defer cancel()
	}

	return s.store.Transfer(ctx, t)
}

// CloseAccount removes the account owned by ownerID. Accounts holding money
// are not closed and fail with domain.ErrAccountNotEmpty.
func (s *AccountService) CloseAccount(ctx context.Context, ownerID string) error {
	if err := s.store.Delete(ctx, ownerID); err != nil {
		s.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("close account failed")
		return err
	}

	s.metrics.AccountClosed()
	s.logger.Info().Str("owner_id", ownerID).Msg("account closed")

	return nil
}
