package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"incidentwatch/pkg/models"
)

func TestConfirmedCopiesWithoutAliasing(t *testing.T) {
	orig := models.Alert{AlertID: "a1", Sources: []string{"social_post:p1"}, ThreatLevel: models.ThreatHigh}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	c := Confirmed(orig, "a2", now)
	if c.AlertID != "a2" || !c.Confirmed || c.Supersedes != "a1" || !c.CreatedAt.Equal(now) {
		t.Fatalf("unexpected confirmed alert %+v", c)
	}
	c.Sources[0] = "changed"
	if orig.Sources[0] != "social_post:p1" {
		t.Fatalf("expected sources to be copied")
	}
	if orig.Confirmed {
		t.Fatalf("expected original to stay unconfirmed")
	}
}

func TestMatches(t *testing.T) {
	a := models.Alert{ThreatLevel: models.ThreatMedium, IncidentType: models.IncidentProtest}
	if !matches(a, Filter{}) {
		t.Fatalf("expected empty filter to match")
	}
	if matches(a, Filter{MinLevel: models.ThreatHigh}) {
		t.Fatalf("expected level filter to reject")
	}
	if matches(a, Filter{IncidentType: models.IncidentAccident}) {
		t.Fatalf("expected type filter to reject")
	}
}

func TestParseStats(t *testing.T) {
	st := parseStats(map[string]string{
		"total":         "5",
		"confirmed":     "1",
		"level:HIGH":    "2",
		"type:accident": "3",
		"garbage":       "x",
	})
	if st.Total != 5 || st.Confirmed != 1 || st.ByLevel["HIGH"] != 2 || st.ByType["accident"] != 3 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

// The remaining tests need a live Redis at INCIDENTWATCH_TEST_REDIS.
func newLiveStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("INCIDENTWATCH_TEST_REDIS")
	if addr == "" {
		t.Skip("INCIDENTWATCH_TEST_REDIS not set")
	}
	s, err := NewRedisStore(RedisConfig{Addr: addr, KeyPrefix: "incidentwatch-test:" + uuid.NewString()})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := s.client.Keys(ctx, s.prefix+":*").Result()
		if len(keys) > 0 {
			s.client.Del(ctx, keys...)
		}
		s.Close()
	})
	return s
}

func TestRedisStoreLifecycle(t *testing.T) {
	s := newLiveStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	alerts := []*models.Alert{
		{AlertID: "a1", ThreatLevel: models.ThreatMedium, IncidentType: models.IncidentProtest, CreatedAt: base},
		{AlertID: "a2", ThreatLevel: models.ThreatHigh, IncidentType: models.IncidentViolence, CreatedAt: base.Add(time.Minute)},
		{AlertID: "a3", ThreatLevel: models.ThreatLow, IncidentType: models.IncidentProtest, CreatedAt: base.Add(2 * time.Minute)},
	}
	if err := s.WriteAlerts(alerts); err != nil {
		t.Fatalf("write: %v", err)
	}

	recent, err := s.Recent(ctx, Filter{MinLevel: models.ThreatMedium})
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].AlertID != "a2" || recent[1].AlertID != "a1" {
		t.Fatalf("unexpected recent alerts %+v", recent)
	}

	s.now = func() time.Time { return base.Add(time.Hour) }
	confirmed, err := s.Confirm(ctx, "a1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !confirmed.Confirmed || confirmed.Supersedes != "a1" {
		t.Fatalf("unexpected confirmed alert %+v", confirmed)
	}
	if _, err := s.Confirm(ctx, "a1"); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if _, err := s.Confirm(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	protests, err := s.Recent(ctx, Filter{IncidentType: models.IncidentProtest})
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(protests) != 2 || protests[0].AlertID != confirmed.AlertID || protests[1].AlertID != "a3" {
		t.Fatalf("expected confirmed copy to replace original, got %+v", protests)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 3 || st.Confirmed != 1 || st.ByLevel["HIGH"] != 1 || st.ByType["protest"] != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestRedisStoreConcurrentConfirmWritesOneCopy(t *testing.T) {
	s := newLiveStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := s.WriteAlerts([]*models.Alert{{AlertID: "a1", ThreatLevel: models.ThreatHigh, IncidentType: models.IncidentViolence, CreatedAt: base}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	const confirmers = 8
	errs := make(chan error, confirmers)
	var wg sync.WaitGroup
	for i := 0; i < confirmers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Confirm(ctx, "a1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrSuperseded):
		default:
			t.Fatalf("unexpected confirm error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one confirm to succeed, got %d", succeeded)
	}
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 1 || st.Confirmed != 1 {
		t.Fatalf("expected one confirmed copy, got %+v", st)
	}
}
