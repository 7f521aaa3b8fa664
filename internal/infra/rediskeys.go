package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "overview"
)

// Ключи состояния
const (
	// RedisKeySiteStates — hash site_id -> reachability
	RedisKeySiteStates       = RedisNamespace + ":sites:states"
	RedisKeyLockWarmupStates = RedisNamespace + ":lock:warmup:states"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanSiteState — сигнал "site_id:state" при смене состояния сайта
	RedisChanSiteState = RedisNamespace + ":sites:state-signal"
)
