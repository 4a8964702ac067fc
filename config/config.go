package config

import (
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// ReceiptConfig controls how the rendered receipt reaches the passenger.
// Delivery is one of "email", "link" or "both". The "link" modes upload the
// PDF to S3 and include its URL in the submission response.
type ReceiptConfig struct {
	Delivery string `mapstructure:"delivery"`
}

type MediaConfig struct {
	MaxImages int `mapstructure:"maxImages"`
	MaxVideos int `mapstructure:"maxVideos"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	S3      S3Config      `mapstructure:"s3"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Receipt ReceiptConfig `mapstructure:"receipt"`
	Media   MediaConfig   `mapstructure:"media"`
}

// LoadConfig reads configuration from config.yaml and overrides it with
// environment variables. A missing config file is not an error; env vars
// alone are enough to run the server.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("mongo.uri", "MONGO_URI")
	viper.BindEnv("mongo.dbName", "MONGO_DBNAME")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	viper.BindEnv("s3.bucket", "S3_BUCKET")
	viper.BindEnv("s3.region", "S3_REGION")
	viper.BindEnv("s3.accessKeyID", "S3_ACCESS_KEY_ID")
	viper.BindEnv("s3.secretAccessKey", "S3_SECRET_ACCESS_KEY")
	viper.BindEnv("s3.cloudFrontDomain", "S3_CLOUDFRONT_DOMAIN")
	viper.BindEnv("smtp.host", "EMAIL_SERVICE_HOST")
	viper.BindEnv("smtp.port", "EMAIL_SERVICE_PORT")
	viper.BindEnv("smtp.username", "EMAIL_SERVICE_USER")
	viper.BindEnv("smtp.password", "EMAIL_SERVICE_PASS")
	viper.BindEnv("smtp.from", "EMAIL_FROM")
	viper.BindEnv("admin.email", "ADMIN_EMAIL")
	viper.BindEnv("admin.password", "ADMIN_PASSWORD")
	viper.BindEnv("receipt.delivery", "RECEIPT_DELIVERY")
	viper.BindEnv("media.maxImages", "MEDIA_MAX_IMAGES")
	viper.BindEnv("media.maxVideos", "MEDIA_MAX_VIDEOS")

	viper.SetDefault("server.port", "5000")
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("receipt.delivery", "both")
	viper.SetDefault("media.maxImages", 10)
	viper.SetDefault("media.maxVideos", 5)

	err = viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return
}
