package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type InvalidationCfg struct {
	Enabled bool
	Driver  string
	Topic   string
	Brokers string
	GroupID string
}

type Config struct {
	Addr     string
	LogLevel string

	// WFS endpoints, one per register.
	WFSBaseC string
	WFSBaseE string

	PageSize        int
	PreviewPageSize int

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	RetryAttempts  int
	RetryBackoff   time.Duration

	// Pagination guards. Both come from observed server behavior and are
	// tunable rather than hard constants.
	StartIndexCeiling int
	MinPlausibleBytes int

	// CRS codes offered for srsName (empty string = server default).
	CRSChoices []string

	RedisAddr       string
	CacheTTLDefault time.Duration
	CacheTTLOvr     map[string]time.Duration
	CacheOpTimeout  time.Duration
	CacheMemSize    int

	Invalidation InvalidationCfg

	// Path or name of the ogr2ogr binary for format conversion.
	Ogr2ogrPath string
}

func FromEnv() Config {
	// Same convention as the original tool: a .env next to the binary
	// overrides nothing already exported.
	_ = godotenv.Load()

	ttlDefault := getduration("CACHE_TTL_DEFAULT", 2*time.Minute)

	return Config{
		Addr:     getenv("ADDR", ":8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		WFSBaseC: getenv("CP_WFS_BASE", "https://inspirews.skgeodesy.sk/geoserver/cp/ows"),
		WFSBaseE: getenv("CP_UO_WFS_BASE", "https://inspirews.skgeodesy.sk/geoserver/cp_uo/ows"),

		PageSize:        getint("PAGE_SIZE", 1000),
		PreviewPageSize: getint("PREVIEW_PAGE_SIZE", 500),

		ConnectTimeout: getduration("WFS_CONNECT_TIMEOUT", 10*time.Second),
		ReadTimeout:    getduration("WFS_READ_TIMEOUT", 60*time.Second),
		RetryAttempts:  getint("WFS_RETRY_ATTEMPTS", 3),
		RetryBackoff:   getduration("WFS_RETRY_BACKOFF", 600*time.Millisecond),

		StartIndexCeiling: getint("WFS_START_INDEX_CEILING", 500_000),
		MinPlausibleBytes: getint("WFS_MIN_PLAUSIBLE_BYTES", 10_000),

		CRSChoices: getlist("WFS_CRS_CHOICES", []string{"EPSG:5514", "EPSG:4258", "EPSG:4326"}),

		RedisAddr:       getenv("REDIS_ADDR", ""),
		CacheTTLDefault: ttlDefault,
		CacheTTLOvr:     parseDurationMap(getenv("CACHE_TTL_OVERRIDES", "")),
		CacheOpTimeout:  getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheMemSize:    getint("CACHE_MEM_SIZE", 256),

		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Driver:  getenv("INVALIDATION_DRIVER", "none"),
			Topic:   getenv("KAFKA_TOPIC", "cadastre-updates"),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			GroupID: getenv("KAFKA_GROUP_ID", "parcelone-invalidator"),
		},

		Ogr2ogrPath: getenv("OGR2OGR_PATH", "ogr2ogr"),
	}
}

// BaseURL returns the WFS endpoint for a register code ("E" selects the
// UO endpoint, everything else the current register).
func (c Config) BaseURL(register string) string {
	if strings.EqualFold(strings.TrimSpace(register), "E") {
		return c.WFSBaseE
	}
	return c.WFSBaseC
}

// CacheTTL returns the TTL for a cache class ("fetch", "preview", "bbox"),
// falling back to the default.
func (c Config) CacheTTL(class string) time.Duration {
	if d, ok := c.CacheTTLOvr[class]; ok {
		return d
	}
	return c.CacheTTLDefault
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getlist(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	var out []string
	for p := range strings.SplitSeq(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// parse "fetch=5m,bbox=30s" into map
func parseDurationMap(s string) map[string]time.Duration {
	out := map[string]time.Duration{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		k := strings.TrimSpace(kv[0])
		v := strings.TrimSpace(kv[1])
		if k == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil {
			out[k] = d
		}
	}
	return out
}
