package bus

import (
	"fmt"

	"github.com/opensource-welfare/kestrel/internal/domain"
)

// New selects the event bus for the configured tier: an in-process
// channel bus for community, NATS for pro.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil
	case "nats":
		return NewNATSBus(cfg)
	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
