package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-coach/internal/jobs/worker"
	"github.com/yungbote/neurobridge-coach/internal/platform/envutil"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

type Config struct {
	Env            string
	ServiceName    string
	Version        string
	Port           string
	JWTSecretKey   string
	AllowedOrigins []string
	Worker         worker.Config
	Policy         Policy
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Env:            envutil.String("APP_ENV", "development"),
		ServiceName:    envutil.String("OTEL_SERVICE_NAME", "neurobridge-coach"),
		Version:        envutil.String("APP_VERSION", ""),
		Port:           envutil.String("PORT", "8080"),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		AllowedOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		Worker:         worker.ConfigFromEnv(),
	}
	if cfg.JWTSecretKey == "" {
		if cfg.Env == "production" {
			return Config{}, fmt.Errorf("JWT_SECRET_KEY is required in production")
		}
		log.Warn("JWT_SECRET_KEY unset; using development secret")
		cfg.JWTSecretKey = "development-secret"
	}

	policy, err := LoadPolicy(envutil.String("COACH_POLICY_FILE", ""))
	if err != nil {
		return Config{}, err
	}
	cfg.Policy = policy
	log.Info("Coaching policy loaded",
		"vad_threshold", policy.VADThreshold,
		"silence_duration_ms", policy.SilenceDurationMS,
		"behavior_interval", policy.BehaviorInterval,
		"smoothing_weight", policy.SmoothingWeight,
	)
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
