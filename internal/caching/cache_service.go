package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tabletop/internal/models"
)

const keyPrefix = "tabletop:"

type CacheService interface {
	// Session management
	SetSession(ctx context.Context, session *models.Session, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Tenant code resolution
	GetTenantByCode(ctx context.Context, code string) (*models.Tenant, error)
	SetTenantByCode(ctx context.Context, tenant *models.Tenant, ttl time.Duration) error
	DeleteTenantByCode(ctx context.Context, code string) error

	// Reports are keyed by the calendar day their window ends on.
	GetReport(ctx context.Context, tenantID uuid.UUID, rng models.ReportRange, day time.Time) (*models.SalesReport, error)
	SetReport(ctx context.Context, tenantID uuid.UUID, report *models.SalesReport, ttl time.Duration) error
	InvalidateReports(ctx context.Context, tenantID uuid.UUID, day time.Time) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	ResetRateLimit(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisClient parses addr, which may be a bare host:port or a redis:// URL.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if password != "" {
			opts.Password = password
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), nil
}

func NewRedisCacheService(client redis.UniversalClient, logger *zap.Logger) CacheService {
	return &redisCacheService{client: client, logger: logger}
}

func sessionKey(id string) string { return keyPrefix + "session:" + id }

func tenantCodeKey(code string) string { return keyPrefix + "tenant_code:" + code }

func reportKey(tenantID uuid.UUID, rng models.ReportRange, day time.Time) string {
	return fmt.Sprintf("%sreport:%s:%s:%s", keyPrefix, tenantID.String(), rng, day.Format(time.DateOnly))
}

func (r *redisCacheService) getJSON(ctx context.Context, key string, out any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) SetSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	return r.setJSON(ctx, sessionKey(session.ID), session, ttl)
}

// GetSession returns nil, nil when the session does not exist or has expired.
func (r *redisCacheService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	found, err := r.getJSON(ctx, sessionKey(sessionID), &session)
	if err != nil || !found {
		return nil, err
	}
	return &session, nil
}

func (r *redisCacheService) DeleteSession(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, sessionKey(sessionID)).Err()
}

func (r *redisCacheService) GetTenantByCode(ctx context.Context, code string) (*models.Tenant, error) {
	var tenant models.Tenant
	found, err := r.getJSON(ctx, tenantCodeKey(code), &tenant)
	if err != nil || !found {
		return nil, err
	}
	return &tenant, nil
}

func (r *redisCacheService) SetTenantByCode(ctx context.Context, tenant *models.Tenant, ttl time.Duration) error {
	return r.setJSON(ctx, tenantCodeKey(tenant.Code), tenant, ttl)
}

func (r *redisCacheService) DeleteTenantByCode(ctx context.Context, code string) error {
	return r.client.Del(ctx, tenantCodeKey(code)).Err()
}

func (r *redisCacheService) GetReport(ctx context.Context, tenantID uuid.UUID, rng models.ReportRange, day time.Time) (*models.SalesReport, error) {
	var report models.SalesReport
	found, err := r.getJSON(ctx, reportKey(tenantID, rng, day), &report)
	if err != nil || !found {
		return nil, err
	}
	return &report, nil
}

func (r *redisCacheService) SetReport(ctx context.Context, tenantID uuid.UUID, report *models.SalesReport, ttl time.Duration) error {
	return r.setJSON(ctx, reportKey(tenantID, report.Range, report.To), report, ttl)
}

func (r *redisCacheService) InvalidateReports(ctx context.Context, tenantID uuid.UUID, day time.Time) error {
	keys := make([]string, 0, 3)
	for _, rng := range []models.ReportRange{models.RangeToday, models.RangeWeek, models.RangeMonth} {
		keys = append(keys, reportKey(tenantID, rng, day))
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := keyPrefix + "ratelimit:" + key
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return false, err
	}

	// Set expiry on first request
	if count == 1 {
		if err := r.client.Expire(ctx, cacheKey, window).Err(); err != nil {
			r.logger.Warn("failed to set rate limit expiry", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) ResetRateLimit(ctx context.Context, key string) error {
	return r.client.Del(ctx, keyPrefix+"ratelimit:"+key).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
