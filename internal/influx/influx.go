package influx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RedUtils/botcore/internal/config"
	"github.com/RedUtils/botcore/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

// BucketMatch holds per-match event points. The agent performance bucket
// comes from config.
const BucketMatch = "match_data"

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influxdb is disabled")

// Manager handles InfluxDB connections and writes. While the server is
// unreachable points go to a gzipped line protocol backup file instead.
type Manager struct {
	cfg        config.InfluxConfig
	client     influxdb2.Client
	writers    map[string]influxdb2_api.WriteAPI
	backupFile *os.File
	backup     *gzip.Writer
	valid      bool
	buckets    []string
	logger     zerolog.Logger
	backupPath string
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	if cfg.Bucket == "" {
		cfg.Bucket = "agent_performance"
	}
	return &Manager{
		cfg:        cfg,
		writers:    make(map[string]influxdb2_api.WriteAPI),
		buckets:    []string{cfg.Bucket, BucketMatch},
		logger:     log,
		backupPath: backupPath,
	}
}

// PerformanceBucket is the bucket tick and status points go to.
func (m *Manager) PerformanceBucket() string {
	return m.cfg.Bucket
}

// Valid reports whether points reach the server rather than the backup file.
func (m *Manager) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// Connect establishes a connection to InfluxDB, falling back to the backup
// file when the server does not answer.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.valid = false
		if m.backup == nil {
			m.logger.Info().Str("backupPath", m.backupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.backup = gzip.NewWriter(file)
		}
		m.logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	m.valid = true
	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.createWriters()
	m.logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := m.cfg.Org

	influxOrg, err := m.client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// 30 day retention; tick points are only useful for recent tuning
	for _, bucket := range m.buckets {
		if _, err := m.client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 30,
		})
		if err != nil {
			m.logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

func (m *Manager) createWriters() {
	for _, bucket := range m.buckets {
		m.logger.Trace().Str("bucket", bucket).Msg("Creating InfluxDB writer")
		w := m.client.WriteAPI(m.cfg.Org, bucket)
		m.writers[bucket] = w

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}

	m.logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		w, ok := m.writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.backup == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backup.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.writers {
		w.Flush()
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.valid = false

	var errs []error
	if m.backup != nil {
		errs = append(errs, m.backup.Close())
		m.backup = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// TickPoint builds the per-tick performance point.
func TickPoint(match core.Match, rec core.TickRecord) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"tick",
		map[string]string{
			"agent": match.AgentName,
			"match": match.Name,
			"phase": rec.Phase.String(),
		},
		map[string]any{
			"tick":        int64(rec.Tick),
			"game_time":   rec.GameTime,
			"delta_time":  rec.DeltaTime,
			"duration_us": rec.Duration.Microseconds(),
			"car_count":   rec.CarCount,
			"has_action":  rec.Action != "",
		},
		rec.Time,
	)
}

// TouchPoint builds a ball touch event point.
func TouchPoint(match core.Match, t core.BallTouch) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"touch",
		map[string]string{
			"match":  match.Name,
			"player": t.PlayerName,
			"team":   t.Team.String(),
		},
		map[string]any{
			"game_time": t.Time,
			"x":         t.Location.X,
			"y":         t.Location.Y,
			"z":         t.Location.Z,
		},
		time.Now(),
	)
}

// StatusPoint builds the periodic agent status point.
func StatusPoint(match core.Match, s core.AgentStatus) *influxdb2_write.Point {
	p := influxdb2_write.NewPoint(
		"agent_status",
		map[string]string{
			"agent": match.AgentName,
			"match": match.Name,
		},
		map[string]any{
			"ticks":     int64(s.Ticks),
			"accepted":  int64(s.Accepted),
			"stale":     int64(s.Stale),
			"malformed": int64(s.Malformed),
			"faults":    int64(s.Faults),
			"cars":      s.Cars,
		},
		s.Time,
	)
	for reason, n := range s.Clears {
		p.AddField("cleared_"+reason, int64(n))
	}
	for name, n := range s.WriteQueues {
		p.AddField("queue_"+name, n)
	}
	return p
}

// ParseMetric parses a host supplied metric and returns a bucket name and point.
//
//	0 = bucket name
//	1 = measurement name
//	"tag::name::value" entries are tags
//	"field::type::name::value" entries are fields, type is string, int or float
func ParseMetric(data []string) (bucket string, point *influxdb2_write.Point, err error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("metric needs a bucket and a measurement, got %d args", len(data))
	}

	bucket = data[0]
	point = influxdb2_write.NewPointWithMeasurement(data[1])
	point.SetTime(time.Now())

	for _, entry := range data[2:] {
		parts := strings.Split(entry, "::")
		switch {
		case parts[0] == "tag" && len(parts) >= 3:
			point.AddTag(parts[1], parts[2])
		case parts[0] == "field" && len(parts) >= 4:
			fieldType, fieldName, fieldValue := parts[1], parts[2], parts[3]
			switch fieldType {
			case "string":
				point.AddField(fieldName, fieldValue)
			case "int":
				intVal, err := strconv.Atoi(fieldValue)
				if err != nil {
					return "", nil, fmt.Errorf("error converting field value '%s' to int: %w", fieldValue, err)
				}
				point.AddField(fieldName, intVal)
			case "float":
				floatVal, err := strconv.ParseFloat(fieldValue, 64)
				if err != nil {
					return "", nil, fmt.Errorf("error converting field value '%s' to float: %w", fieldValue, err)
				}
				point.AddField(fieldName, floatVal)
			}
		}
	}

	return bucket, point, nil
}
