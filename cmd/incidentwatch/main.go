package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"incidentwatch/config"
	"incidentwatch/internal/alerts"
	"incidentwatch/internal/input/frames"
	"incidentwatch/internal/input/posts"
	inputredis "incidentwatch/internal/input/redis"
	"incidentwatch/internal/logger"
	"incidentwatch/internal/opsserver"
	"incidentwatch/internal/pipeline"
	"incidentwatch/internal/store"
	"incidentwatch/internal/supervisor"
	"incidentwatch/internal/visual"
	"incidentwatch/pkg/models"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "run":
		runConsumer(args)
	case "posts":
		os.Exit(runPosts(args))
	case "cctv":
		os.Exit(runCCTV(args))
	case "enqueue":
		os.Exit(runEnqueue(args))
	case "report":
		os.Exit(runReport(args))
	case "alerts":
		os.Exit(runAlerts(args))
	case "confirm":
		os.Exit(runConfirm(args))
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: incidentwatch <command> [flags]

commands:
  run [config]                         consume signals from Redis until SIGINT/SIGTERM
  posts -config c -source s <file>     score a CSV or JSON post export
  cctv -config c <dir>                 sample a frame directory (or a directory of them)
  enqueue -config c -source s <file>   push a post export onto the Redis signal list
  report -config c -type t -text ...   raise an alert from a citizen report
  alerts -config c                     list stored alerts
  confirm -config c <alert-id>         confirm a stored alert`)
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := initLogger(cfg); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, nil
}

func runConsumer(args []string) {
	configPath := ""
	if len(args) > 0 {
		configPath = args[0]
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	defer logger.Close()
	c := cfg.IncidentWatch

	logger.Infof("IncidentWatch starting")

	consumer, err := inputredis.NewConsumer(inputredis.Config{
		Addr:         c.Input.Redis.Addr,
		Password:     c.Input.Redis.Password,
		DB:           c.Input.Redis.DB,
		Key:          c.Input.Redis.Key,
		BlockTimeout: c.Input.Redis.BlockTimeout,
	})
	if err != nil {
		logger.Errorf("Failed to create Redis consumer: %v", err)
		log.Fatalf("Failed to create Redis consumer: %v", err)
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		logger.Errorf("Failed to build scoring engine: %v", err)
		log.Fatalf("Failed to build scoring engine: %v", err)
	}
	sinks, err := buildSinks(cfg)
	if err != nil {
		logger.Errorf("Failed to create outputs: %v", err)
		log.Fatalf("Failed to create outputs: %v", err)
	}

	pipe := pipeline.NewRedisPipeline(
		consumer,
		pipeline.Processor{Analyzer: eng.analyzer, Scorer: eng.scorer, Detector: eng.detector},
		eng.correlator,
		sinks,
		pipeline.Options{
			Workers:       c.Pipeline.Workers,
			BatchSize:     c.Pipeline.BatchSize,
			FlushInterval: c.Pipeline.FlushInterval,
		},
	)

	tree := supervisor.NewTree("incidentwatch", supervisor.DefaultTreeConfig())
	tree.Add(pipe)

	var ops *opsserver.Server
	if c.Ops.Enabled {
		ops = opsserver.New(c.Ops.Listen)
		if err := ops.Listen(); err != nil {
			log.Fatalf("Failed to start ops server: %v", err)
		}
		tree.Add(ops)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := tree.ServeBackground(ctx)
	if ops != nil {
		ops.SetReady(true)
	}

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Supervisor stopped: %v", err)
	}
	logger.Infof("Shutting down")

	if err := pipe.Close(); err != nil {
		logger.Errorf("Error closing pipeline: %v", err)
	}

	logger.Infof("IncidentWatch stopped")
}

func runPosts(args []string) int {
	fs := flag.NewFlagSet("posts", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file path")
	source := fs.String("source", "twitter", "Source name recorded on each post")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "posts: exactly one input file is required")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	defer logger.Close()

	items, read, err := posts.NewReader(*source).ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read posts: %v\n", err)
		return 1
	}
	logger.Infof("Read %d rows from %s: accepted=%d too_short=%d", read.Rows, fs.Arg(0), read.Accepted, read.TooShort)

	eng, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build scoring engine: %v\n", err)
		return 1
	}
	sinks, err := buildSinks(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create outputs: %v\n", err)
		return 1
	}
	defer sinks.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := pipeline.RunPosts(ctx, eng.analyzer, eng.correlator, items, sinks)
	report.Skipped += read.TooShort
	fmt.Println(report.String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write results: %v\n", err)
		return 1
	}
	return 0
}

func runCCTV(args []string) int {
	fs := flag.NewFlagSet("cctv", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file path")
	interval := fs.Int("frame-interval", 0, "Analyze every Nth frame (default from config)")
	camera := fs.String("camera", "", "Camera identifier recorded on each frame")
	lat := fs.String("lat", "", "Camera latitude")
	lng := fs.String("lng", "", "Camera longitude")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "cctv: exactly one frame directory is required")
		return 2
	}
	loc, err := parseLocation(*lat, *lng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cctv: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	defer logger.Close()
	if *interval <= 0 {
		*interval = cfg.IncidentWatch.CCTV.FrameInterval
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build scoring engine: %v\n", err)
		return 1
	}
	sampler, err := visual.NewSampler(eng.scorer, eng.detector, *interval, cfg.IncidentWatch.CCTV.Workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create sampler: %v\n", err)
		return 1
	}
	videos, err := frames.ListVideos(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list videos: %v\n", err)
		return 1
	}
	sinks, err := buildSinks(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create outputs: %v\n", err)
		return 1
	}
	defer sinks.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var total pipeline.BatchReport
	for _, dir := range videos {
		src, err := frames.OpenDir(dir, frames.Options{Camera: *camera, Location: loc})
		if err != nil {
			logger.Warnf("Skipping video %s: %v", dir, err)
			total.Skipped++
			continue
		}
		report, sample, err := pipeline.RunVideo(ctx, sampler, src, eng.correlator, sinks)
		src.Close()
		total.Add(report)
		fmt.Printf("video=%s frames=%d sampled=%d anomalies=%d failed=%d\n",
			dir, sample.FramesRead, sample.Sampled, sample.Anomalies, sample.Failed)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to write results: %v\n", err)
			return 1
		}
		if report.Interrupted && ctx.Err() != nil {
			break
		}
	}
	fmt.Printf("videos=%d %s\n", len(videos), total.String())
	return 0
}

func runEnqueue(args []string) int {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file path")
	source := fs.String("source", "twitter", "Source name recorded on each post")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "enqueue: exactly one input file is required")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	defer logger.Close()

	items, read, err := posts.NewReader(*source).ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read posts: %v\n", err)
		return 1
	}

	r := cfg.IncidentWatch.Input.Redis
	consumer, err := inputredis.NewConsumer(inputredis.Config{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
		Key:      r.Key,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to redis: %v\n", err)
		return 1
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pushed := 0
	for i := range items {
		if err := consumer.Push(ctx, inputredis.Envelope{Kind: inputredis.KindPost, Post: &items[i]}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to push post %s: %v\n", items[i].ID, err)
			break
		}
		pushed++
	}
	fmt.Printf("rows=%d pushed=%d too_short=%d key=%s\n", read.Rows, pushed, read.TooShort, r.Key)
	if pushed < len(items) {
		return 1
	}
	return 0
}

func runReport(args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file path")
	incidentType := fs.String("type", "other", "Incident type (protest, violence, accident, natural_disaster, other)")
	text := fs.String("text", "", "Report description")
	id := fs.String("id", "", "Report identifier (default: random)")
	email := fs.String("email", "", "Reporter email")
	lat := fs.String("lat", "", "Incident latitude")
	lng := fs.String("lng", "", "Incident longitude")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*text) == "" {
		fmt.Fprintln(os.Stderr, "report: -text is required")
		return 2
	}
	loc, err := parseLocation(*lat, *lng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "report: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	defer logger.Close()

	if *id == "" {
		*id = uuid.NewString()
	}
	alert := alerts.FromCitizenReport(models.CitizenReport{
		ID:            *id,
		Description:   *text,
		IncidentType:  models.IncidentType(*incidentType),
		Location:      loc,
		ReporterEmail: *email,
	}, alerts.NewSynthesizer(nil), time.Now().UTC())

	w, err := buildAlertWriter(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create alert output: %v\n", err)
		return 1
	}
	if w != nil {
		defer w.Close()
		if err := w.WriteAlerts([]*models.Alert{&alert}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write alert: %v\n", err)
			return 1
		}
	}
	return printJSON(alert)
}

func runAlerts(args []string) int {
	fs := flag.NewFlagSet("alerts", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file path")
	level := fs.String("level", "", "Minimum threat level (LOW, MEDIUM, HIGH)")
	incidentType := fs.String("type", "", "Incident type filter")
	limit := fs.Int("limit", 20, "Maximum alerts to list")
	stats := fs.Bool("stats", false, "Print alert counters instead of alerts")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	filter := store.Filter{Limit: *limit}
	if *level != "" {
		lvl, err := models.ParseThreatLevel(*level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "alerts: %v\n", err)
			return 2
		}
		filter.MinLevel = lvl
	}
	if *incidentType != "" {
		filter.IncidentType = models.ParseIncidentType(*incidentType)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	defer logger.Close()

	s, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *stats {
		st, err := s.Stats(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read stats: %v\n", err)
			return 1
		}
		return printJSON(st)
	}

	list, err := s.Recent(ctx, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list alerts: %v\n", err)
		return 1
	}
	for _, a := range list {
		if code := printJSON(a); code != 0 {
			return code
		}
	}
	return 0
}

func runConfirm(args []string) int {
	fs := flag.NewFlagSet("confirm", flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file path")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "confirm: exactly one alert id is required")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	defer logger.Close()

	s, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	confirmed, err := s.Confirm(ctx, fs.Arg(0))
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintf(os.Stderr, "alert %s not found\n", fs.Arg(0))
		return 1
	case errors.Is(err, store.ErrSuperseded):
		fmt.Fprintf(os.Stderr, "alert %s was already confirmed\n", fs.Arg(0))
		return 1
	case err != nil:
		fmt.Fprintf(os.Stderr, "failed to confirm alert: %v\n", err)
		return 1
	}
	return printJSON(confirmed)
}

// parseLocation returns nil when both coordinates are empty.
func parseLocation(lat, lng string) (*models.Location, error) {
	if lat == "" && lng == "" {
		return nil, nil
	}
	if lat == "" || lng == "" {
		return nil, fmt.Errorf("both -lat and -lng are required")
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", lat, err)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", lng, err)
	}
	return &models.Location{Lat: la, Lng: ln}, nil
}

func printJSON(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		return 1
	}
	fmt.Println(string(b))
	return 0
}
