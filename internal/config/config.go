package config // package config loads application configuration from environment variables

import (
	"errors"  // errors joins every configuration problem into one report
	"fmt"     // fmt formats configuration errors
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings splits list values
	"time"    // time resolves the reference timezone
)

// Supported values of DB_DRIVER.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for lengths and costs.
type Config struct {
	Env           string         // application environment (e.g. "dev", "prod")
	Port          string         // HTTP port to listen on
	Location      *time.Location // reference timezone for naive reservation timestamps
	SlotLengthMin int            // length of every bookable slot in minutes
	DB            DBConfig       // store of record
	JWTSecret     string         // secret used to sign JWTs
	AccessTTLMin  int            // access token time‑to‑live in minutes
	BcryptCost    int            // bcrypt cost for password hashing
	AdminENumber  int            // bootstrap admin employee number (0 disables seeding)
	AdminPassword string         // bootstrap admin password
	XRayEnabled   bool           // trace HTTP and SQL with AWS X-Ray
	Broker        BrokerConfig   // reservation event publishing
}

// DBConfig selects and addresses the database.
type DBConfig struct {
	Driver      string // mysql, postgres or memory
	User        string // database username
	Pass        string // database password (optional)
	Host        string // database host address
	Port        string // database port number
	Name        string // database name
	SSLMode     string // postgres sslmode
	AutoMigrate bool   // apply the schema at startup
}

// Load reads configuration values from environment variables and returns a
// Config.  Missing or malformed required values cause the program to exit
// with a fatal log message.
func Load() Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Parse is Load without the exit.  Every problem found is reported in the
// returned error.
func Parse() (Config, error) {
	var r reader
	cfg := Config{
		Env:           r.must("APP_ENV"),
		Port:          r.must("APP_PORT"),
		SlotLengthMin: envInt("SLOT_LENGTH_MIN", 15),
		JWTSecret:     r.must("JWT_SECRET"),
		AccessTTLMin:  r.mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:    r.mustInt("BCRYPT_COST"),
		AdminENumber:  envInt("ADMIN_E_NUMBER", 0),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		XRayEnabled:   envBool("XRAY_ENABLED", false),
		Broker:        LoadBrokerConfig(),
	}
	if cfg.SlotLengthMin <= 0 {
		r.fail(fmt.Errorf("SLOT_LENGTH_MIN must be positive, got %d", cfg.SlotLengthMin))
	}

	loc, err := time.LoadLocation(envStr("APP_TIMEZONE", "UTC"))
	if err != nil {
		r.fail(fmt.Errorf("invalid APP_TIMEZONE: %w", err))
		loc = time.UTC
	}
	cfg.Location = loc

	cfg.DB = DBConfig{
		Driver:      strings.ToLower(envStr("DB_DRIVER", DriverMySQL)),
		Pass:        os.Getenv("DB_PASS"),
		SSLMode:     envStr("DB_SSLMODE", "disable"),
		AutoMigrate: envBool("DB_AUTO_MIGRATE", false),
	}
	switch cfg.DB.Driver {
	case DriverMySQL, DriverPostgres:
		cfg.DB.User = r.must("DB_USER")
		cfg.DB.Host = r.must("DB_HOST")
		cfg.DB.Port = r.must("DB_PORT")
		cfg.DB.Name = r.must("DB_NAME")
	case DriverMemory:
	default:
		r.fail(fmt.Errorf("unsupported DB_DRIVER: %q", cfg.DB.Driver))
	}
	return cfg, errors.Join(r.errs...)
}

// reader collects configuration errors so that all of them are reported at once.
type reader struct {
	errs []error
}

func (r *reader) fail(err error) { r.errs = append(r.errs, err) }

// must retrieves the value of a required environment variable.  An unset
// or empty variable is recorded as an error.
func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.fail(fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func (r *reader) mustInt(key string) int {
	s := r.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.fail(fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}
