package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

const defaultSecretKey = "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy"

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail string
		WorkDir          string

		Server     ServerConfig
		Database   DatabaseConfig
		Redis      RedisConfig
		Attendance AttendanceConfig
	}

	ServerConfig struct {
		Host                   string
		Address                string
		DebugHost              string
		JWTExpirationDelta     time.Duration
		ShutdownTimeout        time.Duration
		DisableRequestsLogging bool
	}

	DatabaseConfig struct {
		Engine        string // postgres (lib/pq) | pgx
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Address  string // empty: tokens are tracked in memory
		Password string
		DB       int
	}

	AttendanceConfig struct {
		// AtomicBatch makes a mark-attendance batch all-or-nothing.
		AtomicBatch bool
		// UnrecordedSlots decides how a student-day without a record counts: compat | present | absent | excluded
		UnrecordedSlots string
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, strconv.Itoa(dbc.Port))
}

func (conf *Config) setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Mahudhurio")
	v.SetDefault("secretKey", defaultSecretKey)
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "mahudhurio")
	v.SetDefault("database.user", "mahudhurio")
	v.SetDefault("database.password", "mahudhurio")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.db", 0)

	v.SetDefault("attendance.atomicBatch", false)
	v.SetDefault("attendance.unrecordedSlots", "compat")
}

// NewConfig loads the configuration of the current environment (`ENV`).
// Values come from defaults, then `config/.env.<env>` (if it exists), then the process environment,
// eg. DEV_DATABASE_HOST for `database.host`.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	conf := &Config{Env: env, WorkDir: Getwd()}
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	conf.setDefaults(v)
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(conf.WorkDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf.Debug = v.GetBool("debug")
	conf.TestMode = v.GetBool("testMode")
	conf.Build = v.GetString("build")
	conf.AppName = v.GetString("appName")
	conf.SecretKey = v.GetString("secretKey")
	conf.RollbarToken = v.GetString("rollbarToken")
	conf.SendgridApiKey = v.GetString("sendgridApiKey")
	conf.DefaultFromEmail = v.GetString("defaultFromEmail")

	conf.Server = ServerConfig{
		Host:                   v.GetString("server.host"),
		Address:                v.GetString("server.address"),
		DebugHost:              v.GetString("server.debugHost"),
		JWTExpirationDelta:     v.GetDuration("server.jwtExpirationDelta"),
		ShutdownTimeout:        v.GetDuration("server.shutdownTimeout"),
		DisableRequestsLogging: v.GetBool("server.disableRequestsLogging"),
	}
	conf.Database = DatabaseConfig{
		Engine:        v.GetString("database.engine"),
		Host:          v.GetString("database.host"),
		Port:          v.GetInt("database.port"),
		Name:          v.GetString("database.name"),
		User:          v.GetString("database.user"),
		Password:      v.GetString("database.password"),
		AdminUser:     v.GetString("database.adminUser"),
		AdminPassword: v.GetString("database.adminPassword"),
		DisableTLS:    v.GetBool("database.disableTLS"),
	}
	conf.Redis = RedisConfig{
		Address:  v.GetString("redis.address"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
	conf.Attendance = AttendanceConfig{
		AtomicBatch:     v.GetBool("attendance.atomicBatch"),
		UnrecordedSlots: v.GetString("attendance.unrecordedSlots"),
	}

	if err := conf.Check(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

// Check reports settings that must be provided outside of DEV|TEST.
func (conf *Config) Check() error {
	if conf.Debug || conf.TestMode {
		return nil
	}
	secretChanged := conf.SecretKey != defaultSecretKey
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.SecretKey, "secretKey"),
		vala.Equals(secretChanged, true, "secretKey (default key used)"),
		vala.StringNotEmpty(conf.Database.Name, "database.name"),
		vala.StringNotEmpty(conf.SendgridApiKey, "sendgridApiKey"),
		vala.StringNotEmpty(conf.Redis.Address, "redis.address"),
		vala.Not(vala.Equals(conf.Server.JWTExpirationDelta, time.Duration(0), "server.jwtExpirationDelta")),
	).Check()
}

func (conf *Config) String() string {
	return fmt.Sprintf("%s (build %s, debug: %t)", conf.Env, conf.Build, conf.Debug)
}
