package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		Name          string
		DisableTLS    bool
	}

	GradingConfig struct {
		CGPAStrategy string // historical | single
	}

	ReportsConfig struct {
		Schedule   string // cron spec; empty disables scheduled reports
		Recipients []string
		Semester   string
		DataSource string
		Concurrent bool
	}

	RecordStoreConfig struct {
		BaseURL        string
		RecordsPath    string
		GPARecordsPath string
		LoginPath      string
		RefreshPath    string
		SessionFile    string
		Timeout        time.Duration
	}

	CloudConfig struct {
		Endpoint        string
		AccessKeyID     string
		AccessKeySecret string
		Bucket          string
		Prefix          string
		PublicBaseURL   string
		LocalDir        string
	}

	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		WorkDir          string
		SendgridApiKey   string
		RollbarToken     string
		defaultFromEmail string

		Server      ServerConfig
		Database    DatabaseConfig
		Grading     GradingConfig
		Reports     ReportsConfig
		RecordStore RecordStoreConfig
		Cloud       CloudConfig
	}
)

func (dbConf DatabaseConfig) Address() string {
	return net.JoinHostPort(dbConf.Host, dbConf.Port)
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: "noreply@localhost"}
	}
	if addr.Name == "" {
		addr.Name = conf.AppName
	}
	return *addr
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Alama")
	v.SetDefault("secretKey", "k8#y1d7+lr@n0q2x!c4m(w9v-z$3hf&t6p5e=u)ja*s")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.user", "alama")
	v.SetDefault("database.password", "alama")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "alama")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("grading.cgpaStrategy", "historical")

	v.SetDefault("reports.schedule", "")
	v.SetDefault("reports.recipients", []string{})
	v.SetDefault("reports.semester", "all")
	v.SetDefault("reports.dataSource", "Real API Data")
	v.SetDefault("reports.concurrent", false)

	v.SetDefault("recordStore.baseURL", "http://localhost:8000/api")
	v.SetDefault("recordStore.recordsPath", "/students-records/")
	v.SetDefault("recordStore.gpaRecordsPath", "/gpa-records/")
	v.SetDefault("recordStore.loginPath", "/accounts/login/")
	v.SetDefault("recordStore.refreshPath", "/accounts/token/refresh/")
	v.SetDefault("recordStore.sessionFile", filepath.Join(os.TempDir(), "alama-session.json"))
	v.SetDefault("recordStore.timeout", 30*time.Second)

	v.SetDefault("cloud.endpoint", "")
	v.SetDefault("cloud.accessKeyID", "")
	v.SetDefault("cloud.accessKeySecret", "")
	v.SetDefault("cloud.bucket", "")
	v.SetDefault("cloud.prefix", "reports")
	v.SetDefault("cloud.publicBaseURL", "")
	v.SetDefault("cloud.localDir", filepath.Join(os.TempDir(), "alama-reports"))
}

// NewConfig loads the app's configuration from defaults, `config/.env.<env>` (if it exists) and the environment.
// Env vars are prefixed with the uppercased env name, e.g: DEV_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		WorkDir:          wd,
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Grading: GradingConfig{
			CGPAStrategy: v.GetString("grading.cgpaStrategy"),
		},
		Reports: ReportsConfig{
			Schedule:   v.GetString("reports.schedule"),
			Recipients: v.GetStringSlice("reports.recipients"),
			Semester:   v.GetString("reports.semester"),
			DataSource: v.GetString("reports.dataSource"),
			Concurrent: v.GetBool("reports.concurrent"),
		},
		RecordStore: RecordStoreConfig{
			BaseURL:        v.GetString("recordStore.baseURL"),
			RecordsPath:    v.GetString("recordStore.recordsPath"),
			GPARecordsPath: v.GetString("recordStore.gpaRecordsPath"),
			LoginPath:      v.GetString("recordStore.loginPath"),
			RefreshPath:    v.GetString("recordStore.refreshPath"),
			SessionFile:    v.GetString("recordStore.sessionFile"),
			Timeout:        v.GetDuration("recordStore.timeout"),
		},
		Cloud: CloudConfig{
			Endpoint:        v.GetString("cloud.endpoint"),
			AccessKeyID:     v.GetString("cloud.accessKeyID"),
			AccessKeySecret: v.GetString("cloud.accessKeySecret"),
			Bucket:          v.GetString("cloud.bucket"),
			Prefix:          v.GetString("cloud.prefix"),
			PublicBaseURL:   v.GetString("cloud.publicBaseURL"),
			LocalDir:        v.GetString("cloud.localDir"),
		},
	}
}

// NewTestConfig returns a Config suitable for unit tests: no env lookups, in-memory storage.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	conf := &Config{
		Debug:            true,
		TestMode:         true,
		Env:              "TEST",
		Build:            "test",
		AppName:          v.GetString("appName"),
		SecretKey:        "secret",
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		defaultFromEmail: "reports@test.cd",
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = time.Hour
	conf.Database.Engine = "memory"
	conf.Grading.CGPAStrategy = "historical"
	conf.Reports.Semester = "all"
	conf.Reports.DataSource = "Test Data"
	return conf
}
