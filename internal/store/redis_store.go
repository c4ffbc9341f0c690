package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"incidentwatch/pkg/models"
)

var (
	// ErrNotFound is returned for unknown alert IDs.
	ErrNotFound = errors.New("alert not found")
	// ErrSuperseded is returned when confirming an alert that was already replaced.
	ErrSuperseded = errors.New("alert already superseded")
)

// RedisConfig configures Redis access for alert persistence.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Filter narrows Recent results. Zero values match everything.
type Filter struct {
	MinLevel     models.ThreatLevel
	IncidentType models.IncidentType
	Limit        int
}

// Stats are dashboard counters over every alert written.
type Stats struct {
	Total     int64            `json:"total"`
	Confirmed int64            `json:"confirmed"`
	ByLevel   map[string]int64 `json:"by_level"`
	ByType    map[string]int64 `json:"by_type"`
}

// RedisStore keeps alerts as JSON values indexed by creation time.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore constructs a Redis-backed alert store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "incidentwatch"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis alert store: %w", err)
	}

	return &RedisStore{client: client, prefix: strings.TrimSpace(cfg.KeyPrefix), now: time.Now}, nil
}

// WriteAlerts persists a batch of alerts and updates the counters.
func (s *RedisStore) WriteAlerts(alerts []*models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	ctx := context.Background()
	pipe := s.client.TxPipeline()
	for _, a := range alerts {
		if a == nil {
			continue
		}
		if err := s.queueAlert(ctx, pipe, a); err != nil {
			return err
		}
		pipe.HIncrBy(ctx, s.statsKey(), "total", 1)
		pipe.HIncrBy(ctx, s.statsKey(), levelField(a.ThreatLevel), 1)
		pipe.HIncrBy(ctx, s.statsKey(), typeField(a.IncidentType), 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write alerts to redis: %w", err)
	}
	return nil
}

// Get loads one alert.
func (s *RedisStore) Get(ctx context.Context, id string) (*models.Alert, error) {
	raw, err := s.client.Get(ctx, s.alertKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read alert %s: %w", id, err)
	}
	var a models.Alert
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode alert %s: %w", id, err)
	}
	return &a, nil
}

// Recent returns the newest live alerts matching f. Superseded alerts are hidden.
func (s *RedisStore) Recent(ctx context.Context, f Filter) ([]models.Alert, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	superseded, err := s.client.SMembers(ctx, s.supersededKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("read superseded alerts: %w", err)
	}
	hidden := make(map[string]struct{}, len(superseded))
	for _, id := range superseded {
		hidden[id] = struct{}{}
	}

	const page = 200
	out := make([]models.Alert, 0, limit)
	for start := int64(0); len(out) < limit; start += page {
		ids, err := s.client.ZRevRange(ctx, s.indexKey(), start, start+page-1).Result()
		if err != nil {
			return nil, fmt.Errorf("read alert index: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			if _, ok := hidden[id]; ok {
				continue
			}
			a, err := s.Get(ctx, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if !matches(*a, f) {
				continue
			}
			out = append(out, *a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// confirmAttempts bounds retries when another confirm races on the superseded set.
const confirmAttempts = 5

// Confirm writes a confirmed copy of the alert that supersedes the original.
// The superseded set is watched so concurrent confirms of one alert write a single copy.
func (s *RedisStore) Confirm(ctx context.Context, id string) (*models.Alert, error) {
	orig, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var confirmed models.Alert
	confirm := func(tx *redis.Tx) error {
		isSuperseded, err := tx.SIsMember(ctx, s.supersededKey(), id).Result()
		if err != nil {
			return fmt.Errorf("check superseded alert: %w", err)
		}
		if isSuperseded {
			return fmt.Errorf("%w: %s", ErrSuperseded, id)
		}
		confirmed = Confirmed(*orig, uuid.NewString(), s.now())
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if err := s.queueAlert(ctx, pipe, &confirmed); err != nil {
				return err
			}
			pipe.SAdd(ctx, s.supersededKey(), id)
			pipe.HIncrBy(ctx, s.statsKey(), "confirmed", 1)
			return nil
		})
		return err
	}

	for i := 0; i < confirmAttempts; i++ {
		err := s.client.Watch(ctx, confirm, s.supersededKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrSuperseded) {
				return nil, err
			}
			return nil, fmt.Errorf("confirm alert %s: %w", id, err)
		}
		return &confirmed, nil
	}
	return nil, fmt.Errorf("confirm alert %s: superseded set kept changing", id)
}

// Stats reads the dashboard counters.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	hash, err := s.client.HGetAll(ctx, s.statsKey()).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("read alert stats: %w", err)
	}
	return parseStats(hash), nil
}

// Close closes Redis resources.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) queueAlert(ctx context.Context, pipe redis.Pipeliner, a *models.Alert) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", a.AlertID, err)
	}
	pipe.Set(ctx, s.alertKey(a.AlertID), raw, 0)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(a.CreatedAt.UnixMilli()), Member: a.AlertID})
	return nil
}

// Confirmed returns a confirmed copy of orig under a new ID.
func Confirmed(orig models.Alert, id string, now time.Time) models.Alert {
	c := orig
	c.AlertID = id
	c.Confirmed = true
	c.Supersedes = orig.AlertID
	c.CreatedAt = now
	c.Sources = append([]string(nil), orig.Sources...)
	return c
}

func matches(a models.Alert, f Filter) bool {
	if !a.ThreatLevel.AtLeast(f.MinLevel) {
		return false
	}
	if f.IncidentType != "" && a.IncidentType != f.IncidentType {
		return false
	}
	return true
}

func parseStats(hash map[string]string) Stats {
	st := Stats{ByLevel: map[string]int64{}, ByType: map[string]int64{}}
	for field, raw := range hash {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		switch {
		case field == "total":
			st.Total = n
		case field == "confirmed":
			st.Confirmed = n
		case strings.HasPrefix(field, "level:"):
			st.ByLevel[strings.TrimPrefix(field, "level:")] = n
		case strings.HasPrefix(field, "type:"):
			st.ByType[strings.TrimPrefix(field, "type:")] = n
		}
	}
	return st
}

func levelField(l models.ThreatLevel) string {
	return "level:" + l.String()
}

func typeField(t models.IncidentType) string {
	return "type:" + string(t)
}

func (s *RedisStore) alertKey(id string) string {
	return s.prefix + ":alert:" + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":alerts"
}

func (s *RedisStore) supersededKey() string {
	return s.prefix + ":superseded"
}

func (s *RedisStore) statsKey() string {
	return s.prefix + ":stats"
}
