package banks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/cache"
	"github.com/SwiftFiat/SwiftFiat-Payouts/services/monitoring/logging"
	"github.com/sirupsen/logrus"
)

const storeKey = "payouts:banks"

// Source is the remote bank list, normally the withdrawal gateway
type Source interface {
	ListBanks(ctx context.Context) (domain.BankCollection, error)
}

// Searcher is implemented by sources that can search server side
type Searcher interface {
	SearchBanks(ctx context.Context, query string) (domain.BankCollection, error)
}

// Store is an optional shared tier in front of Source
type Store interface {
	StoreBanks(ctx context.Context, key string, banks domain.BankCollection, ttl time.Duration) error
	GetBanks(ctx context.Context, key string) (domain.BankCollection, error)
}

// Directory serves the bank list with logos attached, from cache when it can
type Directory struct {
	source Source
	cache  *cache.Cache
	store  Store
	ttl    time.Duration
	logger *logging.Logger
}

// NewDirectory accepts a nil store when no shared tier is configured
func NewDirectory(source Source, c *cache.Cache, store Store, ttl time.Duration, logger *logging.Logger) *Directory {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Directory{
		source: source,
		cache:  c,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

func (d *Directory) List(ctx context.Context) (domain.BankCollection, error) {
	return cache.Get(ctx, d.cache, cache.KeyBanks, d.load)
}

// Search is a case-insensitive substring match over name and slug. A cached
// list is filtered locally; otherwise a source that implements Searcher is
// asked directly so one lookup does not pull the whole list.
func (d *Directory) Search(ctx context.Context, query string) (domain.BankCollection, error) {
	if strings.TrimSpace(query) == "" {
		return d.List(ctx)
	}

	if cached, ok := d.cache.Peek(cache.KeyBanks); ok {
		if banks, ok := cached.(domain.BankCollection); ok {
			return banks.FindBanks(query), nil
		}
	}

	if searcher, ok := d.source.(Searcher); ok {
		remote, err := searcher.SearchBanks(ctx, strings.TrimSpace(query))
		if err != nil {
			return nil, err
		}
		return withLogos(remote).Sorted(), nil
	}

	banks, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	return banks.FindBanks(query), nil
}

func (d *Directory) ByType(ctx context.Context) (map[domain.BankType]domain.BankCollection, error) {
	banks, err := d.List(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[domain.BankType]domain.BankCollection)
	for _, bank := range banks {
		index[bank.Type] = append(index[bank.Type], bank)
	}
	return index, nil
}

// Lookup returns domain.ErrUnknownBank for codes the server does not list
func (d *Directory) Lookup(ctx context.Context, code string) (domain.BankDescriptor, error) {
	banks, err := d.List(ctx)
	if err != nil {
		return domain.BankDescriptor{}, err
	}

	code = strings.TrimSpace(code)
	for _, bank := range banks {
		if bank.Code == code {
			return bank, nil
		}
	}
	return domain.BankDescriptor{}, fmt.Errorf("%w: %q", domain.ErrUnknownBank, code)
}

func (d *Directory) Refresh(ctx context.Context) (domain.BankCollection, error) {
	d.cache.Invalidate(cache.KeyBanks)
	return d.List(ctx)
}

func (d *Directory) load(ctx context.Context) (domain.BankCollection, error) {
	if d.store != nil {
		banks, err := d.store.GetBanks(ctx, storeKey)
		if err == nil && len(banks) > 0 {
			return banks, nil
		}
		if err != nil {
			d.logger.WithField("component", "bank_directory").Debug(fmt.Sprintf("shared bank tier miss: %v", err))
		}
	}

	remote, err := d.source.ListBanks(ctx)
	if err != nil {
		return nil, err
	}
	if len(remote) == 0 {
		return nil, errors.New("bank list is empty")
	}

	banks := withLogos(remote).Sorted()

	if d.store != nil {
		if err := d.store.StoreBanks(ctx, storeKey, banks, d.ttl); err != nil {
			d.logger.WithFields(logrus.Fields{
				"component": "bank_directory",
				"count":     len(banks),
			}).Warn(fmt.Sprintf("could not share bank list: %v", err))
		}
	}
	return banks, nil
}

// withLogos copies the server list, the originals are left untouched
func withLogos(banks domain.BankCollection) domain.BankCollection {
	out := make(domain.BankCollection, len(banks))
	for i, bank := range banks {
		if bank.LogoURL == "" {
			bank.LogoURL = LogoURL(bank.Code)
		}
		out[i] = bank
	}
	return out
}
