package posts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"incidentwatch/pkg/models"
)

const (
	// MinTextLength is the shortest trimmed post text worth analyzing.
	MinTextLength = 10
	// MaxTextLength bounds the stored post text, in characters.
	MaxTextLength = 1000
)

var (
	idColumns        = []string{"id", "post_id", "tweet_id"}
	textColumns      = []string{"text", "tweet", "content", "message", "post"}
	authorColumns    = []string{"user", "author", "username", "screen_name"}
	timestampColumns = []string{"timestamp", "created_at", "date", "time"}
	latColumns       = []string{"lat", "latitude"}
	lngColumns       = []string{"lng", "longitude", "lon"}

	timeLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		time.RubyDate,
		"01/02/2006 15:04",
		"01/02/2006",
	}
)

// Report counts rows seen by a reader.
type Report struct {
	Rows     int `json:"rows"`
	Accepted int `json:"accepted"`
	TooShort int `json:"too_short"`
}

// Reader turns tabular exports into social posts.
type Reader struct {
	source string
	now    func() time.Time
}

// NewReader creates a reader tagging posts with source.
func NewReader(source string) *Reader {
	if source == "" {
		source = "twitter"
	}
	return &Reader{source: source, now: time.Now}
}

// ReadFile reads a .json export or, for any other extension, a CSV export.
func (r *Reader) ReadFile(path string) ([]models.SocialPost, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("open posts file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return r.ReadJSON(f)
	}
	return r.ReadCSV(f)
}

// ReadCSV reads posts from a CSV document with a header row.
func (r *Reader) ReadCSV(in io.Reader) ([]models.SocialPost, Report, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, Report{}, nil
		}
		return nil, Report{}, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	var out []models.SocialPost
	var report Report
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, report, fmt.Errorf("read csv row %d: %w", report.Rows+1, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		r.accept(row, &out, &report)
	}
	return out, report, nil
}

// ReadJSON reads posts from a JSON array of objects.
func (r *Reader) ReadJSON(in io.Reader) ([]models.SocialPost, Report, error) {
	var records []map[string]any
	if err := json.NewDecoder(in).Decode(&records); err != nil {
		return nil, Report{}, fmt.Errorf("decode json posts: %w", err)
	}

	var out []models.SocialPost
	var report Report
	for _, rec := range records {
		row := make(map[string]string, len(rec))
		for k, v := range rec {
			row[strings.ToLower(k)] = stringify(v)
		}
		r.accept(row, &out, &report)
	}
	return out, report, nil
}

func (r *Reader) accept(row map[string]string, out *[]models.SocialPost, report *Report) {
	report.Rows++
	post, ok := r.toPost(row, report.Rows)
	if !ok {
		report.TooShort++
		return
	}
	report.Accepted++
	*out = append(*out, post)
}

func (r *Reader) toPost(row map[string]string, n int) (models.SocialPost, bool) {
	text := strings.TrimSpace(first(row, textColumns))
	if utf8.RuneCountInString(text) < MinTextLength {
		return models.SocialPost{}, false
	}

	id := first(row, idColumns)
	if id == "" {
		id = fmt.Sprintf("%s-%d", r.source, n)
	}
	author := first(row, authorColumns)
	if author == "" {
		author = "unknown"
	}

	return models.SocialPost{
		ID:        id,
		Text:      models.TruncateText(text, MaxTextLength),
		Source:    r.source,
		Author:    author,
		Timestamp: r.timestamp(first(row, timestampColumns)),
		Location:  location(row),
	}, true
}

func (r *Reader) timestamp(raw string) time.Time {
	if raw == "" {
		return r.now()
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC()
	}
	return r.now()
}

func location(row map[string]string) *models.Location {
	lat, errLat := strconv.ParseFloat(first(row, latColumns), 64)
	lng, errLng := strconv.ParseFloat(first(row, lngColumns), 64)
	if errLat != nil || errLng != nil {
		return nil
	}
	return &models.Location{Lat: lat, Lng: lng}
}

func first(row map[string]string, columns []string) string {
	for _, col := range columns {
		if v := strings.TrimSpace(row[col]); v != "" && !strings.EqualFold(v, "nan") {
			return v
		}
	}
	return ""
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
