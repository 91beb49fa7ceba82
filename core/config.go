package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string
		Build    string
		Debug    bool
		TestMode bool
		WorkDir  string

		AppName         string
		SecretKey       string
		FrontendBaseURL string
		RollbarToken    string

		Server serverConfig
		Mongo  mongoConfig
		Redis  redisConfig
		Auth   authConfig
		Mail   mailConfig
		Jobs   jobsConfig
	}

	serverConfig struct {
		Host              string
		Addr              string
		DebugHost         string
		ShutdownTimeout   time.Duration
		ReadTimeout       time.Duration
		WriteTimeout      time.Duration
		LoginRatePerMin   int
		ContactRatePerMin int
	}

	mongoConfig struct {
		URI            string
		Database       string
		ConnectTimeout time.Duration
	}

	redisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	authConfig struct {
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		StudentEmailDomain        string
		MaxFailedAttempts         int
		LockoutCooldown           time.Duration
		GateIdleTimeout           time.Duration
		DefaultAdminCode          string
		DemoMode                  bool
		ContactThrottle           time.Duration
	}

	mailConfig struct {
		DefaultFromEmail string
		DefaultFromName  string
		SendgridApiKey   string
	}

	jobsConfig struct {
		AttendanceSummarySpec string
		Timezone              string
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.Mail.DefaultFromName, Address: c.Mail.DefaultFromEmail}
}

// NewConfig loads the configuration from the environment, falling back on `config/.env.<env>` and defaults.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Darul Huda Madrasa")
	v.SetDefault("secretKey", "x9#k2v$mq8+b!t0w=lz7&d3@uj5e(hr6)*yn4f^p1sgc")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("serverReadTimeout", 15*time.Second)
	v.SetDefault("serverWriteTimeout", 15*time.Second)
	v.SetDefault("serverLoginRatePerMin", 30)
	v.SetDefault("serverContactRatePerMin", 10)

	v.SetDefault("mongoURI", "") // in-memory storage when empty
	v.SetDefault("mongoDatabase", "madrasa")
	v.SetDefault("mongoConnectTimeout", 10*time.Second)

	v.SetDefault("redisAddr", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)

	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 30*24*time.Hour)
	v.SetDefault("studentEmailDomain", "student.com")
	v.SetDefault("maxFailedAttempts", 5)
	v.SetDefault("lockoutCooldown", time.Hour)
	v.SetDefault("gateIdleTimeout", 20*time.Minute)
	v.SetDefault("defaultAdminCode", "223344")
	v.SetDefault("demoMode", false)
	v.SetDefault("contactThrottle", time.Hour)

	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultFromName", "Darul Huda Madrasa")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("attendanceSummarySpec", "0 30 23 * * *")
	v.SetDefault("timezone", "Asia/Dhaka")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

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
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		WorkDir:         wd,
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		RollbarToken:    v.GetString("rollbarToken"),
		Server: serverConfig{
			Host:              v.GetString("serverHost"),
			Addr:              v.GetString("serverAddr"),
			DebugHost:         v.GetString("serverDebugHost"),
			ShutdownTimeout:   v.GetDuration("serverShutdownTimeout"),
			ReadTimeout:       v.GetDuration("serverReadTimeout"),
			WriteTimeout:      v.GetDuration("serverWriteTimeout"),
			LoginRatePerMin:   v.GetInt("serverLoginRatePerMin"),
			ContactRatePerMin: v.GetInt("serverContactRatePerMin"),
		},
		Mongo: mongoConfig{
			URI:            v.GetString("mongoURI"),
			Database:       v.GetString("mongoDatabase"),
			ConnectTimeout: v.GetDuration("mongoConnectTimeout"),
		},
		Redis: redisConfig{
			Addr:     v.GetString("redisAddr"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDB"),
		},
		Auth: authConfig{
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			StudentEmailDomain:        v.GetString("studentEmailDomain"),
			MaxFailedAttempts:         v.GetInt("maxFailedAttempts"),
			LockoutCooldown:           v.GetDuration("lockoutCooldown"),
			GateIdleTimeout:           v.GetDuration("gateIdleTimeout"),
			DefaultAdminCode:          v.GetString("defaultAdminCode"),
			DemoMode:                  v.GetBool("demoMode"),
			ContactThrottle:           v.GetDuration("contactThrottle"),
		},
		Mail: mailConfig{
			DefaultFromEmail: v.GetString("defaultFromEmail"),
			DefaultFromName:  v.GetString("defaultFromName"),
			SendgridApiKey:   v.GetString("sendgridApiKey"),
		},
		Jobs: jobsConfig{
			AttendanceSummarySpec: v.GetString("attendanceSummarySpec"),
			Timezone:              v.GetString("timezone"),
		},
	}
}
