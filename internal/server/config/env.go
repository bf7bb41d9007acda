package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/flagx"
	"github.com/joho/godotenv"
)

// lookupEnv is a seam for tests.
var lookupEnv = os.LookupEnv

// parseEnv loads the dotenv file named by -env (or ./.env when present) and
// copies recognized variables into config. Variables already set in the
// process environment win over the file. Malformed numbers panic, like a
// malformed JSON config does.
func parseEnv(config *Config) {
	path := flagx.EnvFileFlags()
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	} else if err := godotenv.Load(path); err != nil {
		panic(err)
	}

	applyEnv(config)
}

func applyEnv(config *Config) {
	envString("HTTP_ADDR", &config.EndpointAddrHTTP)
	envString("GRPC_ADDR", &config.EndpointAddrGRPC)
	envString("DATABASE_URL", &config.DatabaseDSN)
	envString("SECRET_KEY", &config.SecretKey)
	envString("ALGORITHM", &config.Algorithm)
	envMinutes("ACCESS_TOKEN_EXPIRE_MINUTES", &config.AccessTokenValidityDuration)
	envMinutes("REFRESH_TOKEN_EXPIRE_MINUTES", &config.RefreshTokenValidityDuration)
	envString("SECURITY_PASSWORD_SALT", &config.VerificationSalt)
	envSeconds("VERIFICATION_MAX_AGE_SECONDS", &config.VerificationMaxAge)
	envList("PASSWORD_SCHEMES", &config.PasswordSchemes)
	envInt("BCRYPT_COST", &config.BcryptCost)
	envString("SMTP_SERVER", &config.SMTPHost)
	envInt("SMTP_PORT", &config.SMTPPort)
	envString("SMTP_USERNAME", &config.SMTPUser)
	envString("SMTP_PASSWORD", &config.SMTPPassword)
	envString("EMAIL_FROM", &config.EmailFrom)
	envString("FRONTEND_URL", &config.FrontendURL)
	envString("S3_ROOT_USER", &config.S3RootUser)
	envString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("S3_BUCKET", &config.S3Bucket)
	envString("S3_REGION", &config.S3Region)
	envString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	envString("S3_PUBLIC_URL", &config.S3PublicURL)
	envList("CORS_ALLOWED_ORIGINS", &config.CORSAllowedOrigins)
	envInt("RATE_LIMIT_REQUESTS", &config.RateLimitRequests)
	envSeconds("RATE_LIMIT_WINDOW_SECONDS", &config.RateLimitWindow)
	envString("LOG_FILE", &config.LogFile)
	envString("LOG_LEVEL", &config.LogLevel)
}

func envString(key string, dst *string) {
	if v, ok := lookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v, ok := lookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func envMinutes(key string, dst *time.Duration) {
	var n int
	if v, ok := lookupEnv(key); !ok || v == "" {
		return
	}
	envInt(key, &n)
	*dst = time.Duration(n) * time.Minute
}

func envSeconds(key string, dst *time.Duration) {
	var n int
	if v, ok := lookupEnv(key); !ok || v == "" {
		return
	}
	envInt(key, &n)
	*dst = time.Duration(n) * time.Second
}

func envList(key string, dst *[]string) {
	v, ok := lookupEnv(key)
	if !ok || v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
