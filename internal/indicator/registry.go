package indicator

import (
	"sync"

	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
)

// Registry manages all available indicators.
type Registry interface {
	RegisterIndicator(indicator Indicator) error
	GetIndicator(name types.IndicatorType) (Indicator, error)
	ListIndicators() []types.IndicatorType
}

// RegistryV1 is a concurrency-safe indicator registry.
type RegistryV1 struct {
	indicators map[types.IndicatorType]Indicator
	mu         sync.RWMutex
}

// NewRegistry creates a new empty indicator registry.
func NewRegistry() Registry {
	return &RegistryV1{
		indicators: make(map[types.IndicatorType]Indicator),
		mu:         sync.RWMutex{},
	}
}

// RegisterIndicator adds an indicator to the registry.
func (r *RegistryV1) RegisterIndicator(indicator Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := indicator.Name()
	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator with name %s already registered", name)
	}

	r.indicators[name] = indicator

	return nil
}

// GetIndicator retrieves an indicator by name.
func (r *RegistryV1) GetIndicator(name types.IndicatorType) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indicator, exists := r.indicators[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	return indicator, nil
}

// DefaultRegistry returns a registry populated with every supported
// indicator at its conventional period.
func DefaultRegistry() (Registry, error) {
	registry := NewRegistry()

	rsi, err := NewRSI(14)
	if err != nil {
		return nil, err
	}

	mfi, err := NewMFI(14)
	if err != nil {
		return nil, err
	}

	bollinger, err := NewBollingerBands(20, 2.0)
	if err != nil {
		return nil, err
	}

	sma, err := NewSMA(20)
	if err != nil {
		return nil, err
	}

	ema, err := NewEMA(20)
	if err != nil {
		return nil, err
	}

	for _, ind := range []Indicator{rsi, mfi, bollinger, sma, ema} {
		if err := registry.RegisterIndicator(ind); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// ListIndicators returns a list of all registered indicator names.
func (r *RegistryV1) ListIndicators() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.indicators))
	for name := range r.indicators {
		names = append(names, name)
	}

	return names
}
