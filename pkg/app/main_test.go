package app

import (
	"testing"

	"github.com/ghuser/stockledger/pkg/cache"
	"github.com/ghuser/stockledger/pkg/config"
	"github.com/ghuser/stockledger/pkg/logger"
)

func TestHealthChecks_OnlyConfiguredDependencies(t *testing.T) {
	a := &Application{Logger: logger.NewNop()}
	if got := a.HealthChecks(); len(got) != 0 {
		t.Fatalf("expected no checks in memory mode, got %v", got)
	}

	a.Redis = &cache.RedisClient{}
	got := a.HealthChecks()
	if _, ok := got["redis"]; !ok || len(got) != 1 {
		t.Fatalf("expected only redis check, got %v", got)
	}
}

func TestIsProduction(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		want bool
	}{
		{"nil config", nil, false},
		{"development", &config.Config{Environment: config.EnvDevelopment}, false},
		{"production", &config.Config{Environment: config.EnvProduction}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (&Application{Config: tt.cfg}).IsProduction(); got != tt.want {
				t.Fatalf("IsProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}
