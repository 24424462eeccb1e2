package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AWSRegion       string
	SQSScanQueueURL string // Hàng đợi nhận dữ liệu quét QR từ cổng
	IoTMQTTEndpoint string

	JWTSecret          string
	JWTExpirationHours time.Duration
	AdminEmail         string
	AdminPassword      string
	DisplayTimezone    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ProxyPort          string
	PaymentProvider    string // "paymongo" hoặc "stripe"
	PaymentSecretKey   string
	PaymentAPIBaseURL  string
	PaymentCurrency    string
	WebhookSecret      string
	CheckoutSuccessURL string
	CheckoutCancelURL  string

	ReadTimeout      time.Duration
	ActivityTimeout  time.Duration
	EarningsTimeout  time.Duration
	PollInterval     time.Duration
	ProjectorWindow  time.Duration
	ActivityFetchCap int
	Debounce         map[string]time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Cảnh báo: Không thể tải file .env: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	fetchCap, _ := strconv.Atoi(getEnv("ACTIVITY_FETCH_LIMIT", "50"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "parking"),
		DBPassword: getEnv("DB_PASSWORD", "parking"),
		DBName:     getEnv("DB_NAME", "parking_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		AWSRegion:       getEnv("AWS_REGION", "ap-southeast-1"),
		SQSScanQueueURL: getEnv("SQS_SCAN_QUEUE_URL", ""),
		IoTMQTTEndpoint: getEnv("IOT_MQTT_ENDPOINT", ""),

		JWTSecret:          getEnv("JWT_SECRET", "change-me-jwt-secret"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,
		AdminEmail:         getEnv("ADMIN_EMAIL", ""),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		DisplayTimezone:    getEnv("DISPLAY_TIMEZONE", "UTC"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		ProxyPort:          getEnv("PROXY_PORT", "8081"),
		PaymentProvider:    getEnv("PAYMENT_PROVIDER", "paymongo"),
		PaymentSecretKey:   getEnv("PAYMENT_SECRET_KEY", ""),
		PaymentAPIBaseURL:  getEnv("PAYMENT_API_BASE_URL", "https://api.paymongo.com/v1"),
		PaymentCurrency:    getEnv("PAYMENT_CURRENCY", "PHP"),
		WebhookSecret:      getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		CheckoutSuccessURL: getEnv("CHECKOUT_SUCCESS_URL", ""),
		CheckoutCancelURL:  getEnv("CHECKOUT_CANCEL_URL", ""),

		ReadTimeout:      getDuration("READ_TIMEOUT", 8*time.Second),
		ActivityTimeout:  getDuration("ACTIVITY_TIMEOUT", 12*time.Second),
		EarningsTimeout:  getDuration("EARNINGS_TIMEOUT", 30*time.Second),
		PollInterval:     getDuration("POLL_INTERVAL", 30*time.Second),
		ProjectorWindow:  getDuration("PROJECTOR_WINDOW", 1500*time.Millisecond),
		ActivityFetchCap: fetchCap,
		Debounce:         DefaultDebounce(),
	}
}

// DefaultDebounce trả về thời gian gom sự kiện cho từng bảng.
func DefaultDebounce() map[string]time.Duration {
	return map[string]time.Duration{
		"parking_sessions": 700 * time.Millisecond,
		"payments":         800 * time.Millisecond,
		"admin_activities": 600 * time.Millisecond,
		"user_activities":  600 * time.Millisecond,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Biến môi trường '%s' không được đặt, sử dụng giá trị mặc định: '%s'", key, fallback)
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Giá trị '%s' của '%s' không hợp lệ, sử dụng mặc định %s", value, key, fallback)
		return fallback
	}
	return d
}

// Location trả về múi giờ hiển thị; tên không hợp lệ thì dùng UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		log.Printf("Múi giờ '%s' không hợp lệ, sử dụng UTC: %v", c.DisplayTimezone, err)
		return time.UTC
	}
	return loc
}
