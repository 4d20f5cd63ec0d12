package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/internal/withdrawal/domain"
	"github.com/redis/go-redis/v9"
)

// StoreBanks writes each bank as a hash under key:<code> and the codes into
// the set at key. Everything expires together after ttl.
func (r *RedisService) StoreBanks(ctx context.Context, key string, banks domain.BankCollection, ttl time.Duration) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		for _, bank := range banks {
			bankKey := bankHashKey(key, bank.Code)
			pipe.HSet(ctx, bankKey, bankToHash(bank))
			pipe.Expire(ctx, bankKey, ttl)
			pipe.SAdd(ctx, key, bank.Code)
		}
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not store banks in Redis: %w", err)
	}
	return nil
}

// GetBanks returns redis.Nil when nothing is stored under key
func (r *RedisService) GetBanks(ctx context.Context, key string) (domain.BankCollection, error) {
	codes, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("could not get bank codes from Redis: %w", err)
	}
	if len(codes) == 0 {
		return nil, redis.Nil
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(codes))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, code := range codes {
			cmds = append(cmds, pipe.HGetAll(ctx, bankHashKey(key, code)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not get banks from Redis: %w", err)
	}

	banks := make(domain.BankCollection, 0, len(cmds))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// a hash expired before its index, treat the whole set as missing
			return nil, redis.Nil
		}
		banks = append(banks, bankFromHash(fields))
	}
	return banks.Sorted(), nil
}

func bankHashKey(key, code string) string {
	return fmt.Sprintf("%s:%s", key, code)
}

func bankToHash(bank domain.BankDescriptor) map[string]interface{} {
	return map[string]interface{}{
		"code":     bank.Code,
		"name":     bank.Name,
		"slug":     bank.Slug,
		"type":     string(bank.Type),
		"logo_url": bank.LogoURL,
	}
}

func bankFromHash(fields map[string]string) domain.BankDescriptor {
	return domain.BankDescriptor{
		Code:    fields["code"],
		Name:    fields["name"],
		Slug:    fields["slug"],
		Type:    domain.ParseBankType(fields["type"]),
		LogoURL: fields["logo_url"],
	}
}
