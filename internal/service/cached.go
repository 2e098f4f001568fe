package service

import (
	"context"
	"fmt"
	"time"

	"github.com/godilite/ticket-triage/pkg/cache"
)

const (
	defaultRecordTTL = 10 * time.Minute
	defaultListTTL   = 30 * time.Second
)

// CachedTriageService serves ticket reads through a read-through cache.
// Records never change once stored, so they are cached without refresh; the
// recent-tickets list is refreshed ahead on every hit.
type CachedTriageService struct {
	*TriageService
	cache     *cache.ReadThrough
	recordTTL time.Duration
	listTTL   time.Duration
}

func NewCachedTriageService(svc *TriageService, rt *cache.ReadThrough, recordTTL, listTTL time.Duration) *CachedTriageService {
	if svc == nil {
		panic("triage service must not be nil")
	}
	if rt == nil {
		rt = cache.NewReadThrough(nil, svc.logger)
	}
	if recordTTL <= 0 {
		recordTTL = defaultRecordTTL
	}
	if listTTL <= 0 {
		listTTL = defaultListTTL
	}
	return &CachedTriageService{TriageService: svc, cache: rt, recordTTL: recordTTL, listTTL: listTTL}
}

func (c *CachedTriageService) GetTicket(ctx context.Context, id string) (Record, error) {
	return cache.FindAndCache(ctx, c.cache, "ticket:"+id, c.recordTTL, false, func(ctx context.Context) (Record, error) {
		return c.TriageService.GetTicket(ctx, id)
	})
}

func (c *CachedTriageService) ListTickets(ctx context.Context, limit int) ([]Record, error) {
	limit = clampListLimit(limit)
	key := fmt.Sprintf("tickets:recent:%d", limit)
	return cache.FindAndCache(ctx, c.cache, key, c.listTTL, true, func(ctx context.Context) ([]Record, error) {
		return c.TriageService.ListTickets(ctx, limit)
	})
}
