package acquirer

import (
	"net/http"
	"strings"
	"sync"

	"pixgate/internal/domain"
	"pixgate/pkg/logger"
)

// Adapter translates a provider-specific webhook payload into a normalized
// SettlementEvent. The core settlement flow knows nothing about provider
// formats.
type Adapter interface {
	Name() string
	Parse(r *http.Request, body []byte) (*domain.SettlementEvent, error)
}

type Registry struct {
	adapters map[string]Adapter
	mutex    sync.RWMutex
	logger   logger.Logger
}

func NewRegistry(logger logger.Logger) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		logger:   logger,
	}
}

func (r *Registry) Register(adapter Adapter) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := strings.ToLower(adapter.Name())
	r.adapters[name] = adapter
	r.logger.Info("Acquirer adapter'ı kaydedildi", map[string]interface{}{"acquirer": name})
}

func (r *Registry) Resolve(name string) (Adapter, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	adapter, ok := r.adapters[strings.ToLower(name)]
	if !ok {
		return nil, domain.ErrUnknownAcquirer
	}
	return adapter, nil
}
