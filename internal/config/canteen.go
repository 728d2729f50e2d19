package config

import (
	"os"
	"strconv"
	"time"
)

type CanteenConfig struct {
	TicketTimeout  time.Duration
	MenuCacheTTL   time.Duration
	MaxPaidOrders  int
	MaxTopUpAmount int64
}

func LoadCanteenConfig() *CanteenConfig {
	return &CanteenConfig{
		TicketTimeout:  getEnvAsDuration("CANTEEN_TICKET_TIMEOUT", 5*time.Minute),
		MenuCacheTTL:   getEnvAsDuration("CANTEEN_MENU_CACHE_TTL", 30*time.Second),
		MaxPaidOrders:  getEnvAsInt("CANTEEN_MAX_PAID_ORDERS", 1),
		MaxTopUpAmount: getEnvAsInt64("CANTEEN_MAX_TOPUP", 100_000_00),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := getEnv(key, ""); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := getEnv(key, ""); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := getEnv(key, ""); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
