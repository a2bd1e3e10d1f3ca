package port

import "github.com/arturoeanton/cirkle/internal/domain"

// EventPublisher fans group events out to subscribers.
type EventPublisher interface {
	Publish(evt domain.Event)
}
