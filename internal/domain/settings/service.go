package settings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/shoplink/shoplink-api/internal/domain/commission"
)

const (
	cacheKey = "platform:settings"
	cacheTTL = time.Minute
)

// Service serves platform settings with a short Redis cache in front of the
// database row. It implements the coordinator's RateSource.
type Service struct {
	repo  *Repository
	redis *redis.Client // optional; nil disables caching
}

func NewService(repo *Repository, rdb *redis.Client) *Service {
	return &Service{repo: repo, redis: rdb}
}

// Get returns the current settings, preferring the cache.
func (s *Service) Get(ctx context.Context) (*Settings, error) {
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached Settings
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	loaded, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if raw, err := json.Marshal(loaded); err == nil {
			if err := s.redis.Set(ctx, cacheKey, raw, cacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("Failed to cache platform settings")
			}
		}
	}

	return loaded, nil
}

// Update validates and persists new settings, then drops the cache so the
// next read sees them.
func (s *Service) Update(ctx context.Context, upd *Settings) error {
	hundred := decimal.NewFromInt(100)
	for _, pct := range []decimal.Decimal{upd.TemporaryCommissionPct, upd.AnnualCommissionPct} {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return ErrInvalidRate
		}
	}
	if upd.AdGrantCeiling <= 0 {
		return ErrInvalidRate
	}

	if err := s.repo.Update(ctx, upd); err != nil {
		return err
	}

	if s.redis != nil {
		if err := s.redis.Del(ctx, cacheKey).Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate settings cache")
		}
	}

	log.Info().
		Str("temporary_pct", upd.TemporaryCommissionPct.String()).
		Str("annual_pct", upd.AnnualCommissionPct.String()).
		Int("ad_grant_ceiling", upd.AdGrantCeiling).
		Msg("platform settings updated")

	return nil
}

// Splitter builds a commission splitter from the current rates.
func (s *Service) Splitter(ctx context.Context) (*commission.Splitter, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return commission.NewSplitter(commission.Rates{
		TemporaryPct: cfg.TemporaryCommissionPct,
		AnnualPct:    cfg.AnnualCommissionPct,
	}), nil
}

// AdGrantCeiling returns the per-admin concurrent ad grant limit.
func (s *Service) AdGrantCeiling(ctx context.Context) (int, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return cfg.AdGrantCeiling, nil
}
