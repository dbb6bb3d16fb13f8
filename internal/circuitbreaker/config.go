package circuitbreaker

import (
	"os"
	"strconv"
	"time"
)

// Profile is the env-tunable configuration for one class of dependency.
type Profile struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	SuccessThreshold uint32
}

// HTTPProfile returns breaker settings for outbound HTTP dependencies
// (the similarity search service).
func HTTPProfile() Profile {
	return Profile{
		MaxRequests:      envUint32("CB_HTTP_MAX_REQUESTS", 5),
		Interval:         envDuration("CB_HTTP_INTERVAL", 30*time.Second),
		Timeout:          envDuration("CB_HTTP_TIMEOUT", 15*time.Second),
		FailureThreshold: envUint32("CB_HTTP_FAILURE_THRESHOLD", 3),
		SuccessThreshold: envUint32("CB_HTTP_SUCCESS_THRESHOLD", 2),
	}
}

// RedisProfile returns breaker settings for the Redis cache.
func RedisProfile() Profile {
	return Profile{
		MaxRequests:      envUint32("CB_REDIS_MAX_REQUESTS", 5),
		Interval:         envDuration("CB_REDIS_INTERVAL", 30*time.Second),
		Timeout:          envDuration("CB_REDIS_TIMEOUT", 15*time.Second),
		FailureThreshold: envUint32("CB_REDIS_FAILURE_THRESHOLD", 3),
		SuccessThreshold: envUint32("CB_REDIS_SUCCESS_THRESHOLD", 2),
	}
}

// ToConfig converts a profile to a breaker Config.
func (p Profile) ToConfig() Config {
	return Config{
		MaxRequests:      p.MaxRequests,
		Interval:         p.Interval,
		Timeout:          p.Timeout,
		FailureThreshold: p.FailureThreshold,
		SuccessThreshold: p.SuccessThreshold,
	}
}

func envUint32(key string, defaultValue uint32) uint32 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseUint(val, 10, 32); err == nil {
			return uint32(parsed)
		}
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}
