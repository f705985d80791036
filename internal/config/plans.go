package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Plan is a purchasable subscription plan. Price is in cents.
type Plan struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Price       int64  `mapstructure:"price"`
	Description string `mapstructure:"description"`
}

type PlanCatalog struct {
	Plans []Plan `mapstructure:"plans"`
}

// Find returns the plan with the given id.
func (c PlanCatalog) Find(id string) (Plan, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, plan := range c.Plans {
		if strings.EqualFold(plan.ID, id) {
			return plan, true
		}
	}
	return Plan{}, false
}

func DefaultPlanCatalog() PlanCatalog {
	return PlanCatalog{
		Plans: []Plan{
			{ID: "pro", Name: "Pro", Price: 74700, Description: "Pro subscription"},
		},
	}
}

type PlanCatalogHolder struct {
	current atomic.Value // holds PlanCatalog
}

func NewPlanCatalogHolder() (*PlanCatalogHolder, error) {
	return NewPlanCatalogHolderFromPaths("/var/lib/hrledger/config", "/etc/hrledger", ".")
}

// NewPlanCatalogHolderFromPaths loads plans.yml from the first matching path
// and keeps watching it for changes.
func NewPlanCatalogHolderFromPaths(paths ...string) (*PlanCatalogHolder, error) {
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("HRLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	cfg := DefaultPlanCatalog()
	if found {
		var loaded PlanCatalog
		if err := v.Unmarshal(&loaded); err != nil {
			return nil, err
		}
		if err := validatePlanCatalog(loaded); err != nil {
			return nil, err
		}
		cfg = loaded
	}

	holder := &PlanCatalogHolder{}
	holder.current.Store(cfg)

	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlanCatalog
		if err := v.Unmarshal(&updated); err != nil {
			zap.L().Warn("plan catalog reload failed", zap.Error(err))
			return
		}
		if err := validatePlanCatalog(updated); err != nil {
			zap.L().Warn("invalid plan catalog ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		zap.L().Info("plan catalog reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PlanCatalogHolder) Get() PlanCatalog {
	return h.current.Load().(PlanCatalog)
}

func validatePlanCatalog(cfg PlanCatalog) error {
	if len(cfg.Plans) == 0 {
		return errors.New("plans cannot be empty")
	}
	seen := map[string]struct{}{}
	for _, plan := range cfg.Plans {
		id := strings.ToLower(strings.TrimSpace(plan.ID))
		if id == "" {
			return errors.New("plan id is required")
		}
		if plan.Price <= 0 {
			return fmt.Errorf("plan %s: price must be positive", id)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("plan %s: duplicate id", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
