package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

func String(name string, def string, log *logger.Logger) string {
	v, ok := lookup(name)
	if !ok {
		debugDefault(log, name, def)
		return def
	}
	debugFound(log, name, v)
	return v
}

// Secret is String without echoing the value.
func Secret(name string, log *logger.Logger) string {
	v, ok := lookup(name)
	if log != nil {
		log.Debug("Secret environment variable checked", "env_var", name, "present", ok)
	}
	return v
}

func Int(name string, def int, log *logger.Logger) int {
	v, ok := lookup(name)
	if !ok {
		debugDefault(log, name, def)
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as int, using default", "env_var", name, "providedVal", v, "defaultVal", def, "error", err)
		}
		return def
	}
	debugFound(log, name, i)
	return i
}

func Bool(name string, def bool, log *logger.Logger) bool {
	v, ok := lookup(name)
	if !ok {
		debugDefault(log, name, def)
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// Duration accepts Go duration strings ("90s") or a bare integer in the given unit.
func Duration(name string, def time.Duration, unit time.Duration, log *logger.Logger) time.Duration {
	v, ok := lookup(name)
	if !ok {
		debugDefault(log, name, def)
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * unit
	}
	return def
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

func debugDefault(log *logger.Logger, name string, def interface{}) {
	if log != nil {
		log.Debug("Environment variable not found, using default", "env_var", name, "default", def)
	}
}

func debugFound(log *logger.Logger, name string, v interface{}) {
	if log != nil {
		log.Debug("Environment variable found, using environment", "env_var", name, "environment", v)
	}
}
