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

const (
	EnvDev  = "DEV"
	EnvTest = "TEST"
	EnvQA   = "QA"
	EnvProd = "PROD"

	DBEngineMongo    = "mongodb"
	DBEnginePostgres = "postgres"
	DBEngineMemory   = "memory"

	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type (
	ServerConfig struct {
		Address                   string        `mapstructure:"address"`
		Host                      string        `mapstructure:"host"`
		DebugHost                 string        `mapstructure:"debugHost"`
		ShutdownTimeout           time.Duration `mapstructure:"shutdownTimeout"`
		RequestTimeout            time.Duration `mapstructure:"requestTimeout"`
		JWTExpirationDelta        time.Duration `mapstructure:"jwtExpirationDelta"`
		JWTRefreshExpirationDelta time.Duration `mapstructure:"jwtRefreshExpirationDelta"`
		AdminJWTExpirationDelta   time.Duration `mapstructure:"adminJwtExpirationDelta"`
		CORSOrigins               []string      `mapstructure:"corsOrigins"`
		BodyLimit                 string        `mapstructure:"bodyLimit"`
	}

	DatabaseConfig struct {
		Engine        string        `mapstructure:"engine"` // mongodb | postgres | memory
		URI           string        `mapstructure:"uri"`    // mongodb only
		Name          string        `mapstructure:"name"`
		Host          string        `mapstructure:"host"`
		Port          string        `mapstructure:"port"`
		User          string        `mapstructure:"user"`
		Password      string        `mapstructure:"password"`
		AdminUser     string        `mapstructure:"adminUser"`
		AdminPassword string        `mapstructure:"adminPassword"`
		DisableTLS    bool          `mapstructure:"disableTls"`
		Timeout       time.Duration `mapstructure:"timeout"`
		MaxRetries    int           `mapstructure:"maxRetries"`
	}

	RedisConfig struct {
		Addr     string `mapstructure:"addr"` // empty: in-memory OTP store
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	StorageConfig struct {
		Driver        string `mapstructure:"driver"` // local | s3
		Bucket        string `mapstructure:"bucket"`
		Region        string `mapstructure:"region"`
		BaseEndpoint  string `mapstructure:"baseEndpoint"`
		AccessKey     string `mapstructure:"accessKey"`
		SecretKey     string `mapstructure:"secretKey"`
		PublicBaseURL string `mapstructure:"publicBaseUrl"`
		LocalDir      string `mapstructure:"localDir"`
		MaxImageSize  int64  `mapstructure:"maxImageSize"`
		MaxVideoSize  int64  `mapstructure:"maxVideoSize"`
	}

	PaymentConfig struct {
		Gateway       string `mapstructure:"gateway"` // dummy | razorpay
		KeyID         string `mapstructure:"keyId"`
		KeySecret     string `mapstructure:"keySecret"`
		WebhookSecret string `mapstructure:"webhookSecret"`
		Currency      string `mapstructure:"currency"`
	}

	OTPConfig struct {
		Length  int           `mapstructure:"length"`
		Timeout time.Duration `mapstructure:"timeout"`
	}

	AdminConfig struct {
		Email    string `mapstructure:"email"`
		Password string `mapstructure:"password"`
	}

	// Config holds every setting of the application.
	Config struct {
		AppName         string         `mapstructure:"appName"`
		Env             string         `mapstructure:"env"`
		Build           string         `mapstructure:"build"`
		Debug           bool           `mapstructure:"debug"`
		TestMode        bool           `mapstructure:"testMode"`
		SecretKey       string         `mapstructure:"secretKey"`
		FrontendBaseURL string         `mapstructure:"frontendBaseUrl"`
		MasterLinkToken string         `mapstructure:"masterLinkToken"`
		RollbarToken    string         `mapstructure:"rollbarToken"`
		SendgridApiKey  string         `mapstructure:"sendgridApiKey"`
		DefaultFromName string         `mapstructure:"defaultFromName"`
		DefaultFromAddr string         `mapstructure:"defaultFromEmail"`
		DefaultAdmin    AdminConfig    `mapstructure:"defaultAdmin"`
		Server          ServerConfig   `mapstructure:"server"`
		Database        DatabaseConfig `mapstructure:"database"`
		Redis           RedisConfig    `mapstructure:"redis"`
		Storage         StorageConfig  `mapstructure:"storage"`
		Payment         PaymentConfig  `mapstructure:"payment"`
		OTP             OTPConfig      `mapstructure:"otp"`
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddr}
}

func (c *Config) IsMongo() bool {
	return c.Database.Engine == DBEngineMongo
}

// Address returns the postgres "host:port" pair.
func (d DatabaseConfig) Address() string {
	return d.Host + ":" + d.Port
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "Pro Chartist")
	v.SetDefault("env", EnvDev)
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "k2y8-qwe)tbn$+31=dz&ipxh2(h!x)#*c7(#ug4h^$cdfm2wmy")
	v.SetDefault("frontendBaseUrl", "http://localhost:5173")
	v.SetDefault("masterLinkToken", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromName", "Pro Chartist")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultAdmin.email", "")
	v.SetDefault("defaultAdmin.password", "")

	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":5001")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.requestTimeout", 20*time.Second)
	v.SetDefault("server.jwtExpirationDelta", time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 24*time.Hour)
	v.SetDefault("server.adminJwtExpirationDelta", 24*time.Hour)
	v.SetDefault("server.corsOrigins", []string{"*"})
	v.SetDefault("server.bodyLimit", "12M")

	v.SetDefault("database.engine", DBEngineMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "prochartist")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "prochartist")
	v.SetDefault("database.password", "prochartist")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTls", true)
	v.SetDefault("database.timeout", 15*time.Second)
	v.SetDefault("database.maxRetries", 3)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.driver", StorageDriverLocal)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "ap-south-1")
	v.SetDefault("storage.baseEndpoint", "")
	v.SetDefault("storage.accessKey", "")
	v.SetDefault("storage.secretKey", "")
	v.SetDefault("storage.publicBaseUrl", "http://localhost:5000/uploads")
	v.SetDefault("storage.localDir", "uploads")
	v.SetDefault("storage.maxImageSize", 5<<20)
	v.SetDefault("storage.maxVideoSize", 10<<20)

	v.SetDefault("payment.gateway", "dummy")
	v.SetDefault("payment.keyId", "")
	v.SetDefault("payment.keySecret", "")
	v.SetDefault("payment.webhookSecret", "")
	v.SetDefault("payment.currency", "INR")

	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.timeout", 5*time.Minute)
}

// NewConfig loads the configuration of the current environment.
// Values come from (by order of precedence): env vars prefixed with the env name (e.g. PROD_DATABASE_URI),
// the optional "config/.env.<env>" file and the defaults.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = EnvDev
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v := viper.New()
	setDefaults(v)
	v.Set("env", env)
	if env == EnvTest {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	return conf
}

// NewTestConfig returns the configuration used by tests: in-memory collaborators and no external services.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	v.Set("env", EnvTest)
	v.Set("testMode", true)
	v.Set("debug", false)

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	return conf
}
