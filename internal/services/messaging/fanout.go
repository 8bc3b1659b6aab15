package messaging

import (
	"errors"
	"fmt"

	"intrusion-worker-go/internal/models"
)

type route struct {
	name      string
	publisher models.MessagePublisher
	subject   string
}

// Fanout sends each event to every registered publisher on its own subject or topic.
type Fanout struct {
	routes []route
}

func NewFanout() *Fanout {
	return &Fanout{}
}

// Add registers a publisher. Nil publishers are ignored so optional transports can be passed as is.
func (f *Fanout) Add(name string, publisher models.MessagePublisher, subject string) *Fanout {
	if publisher != nil && subject != "" {
		f.routes = append(f.routes, route{name: name, publisher: publisher, subject: subject})
	}
	return f
}

func (f *Fanout) Len() int {
	return len(f.routes)
}

// PublishIntrusion publishes to all routes and joins their errors.
func (f *Fanout) PublishIntrusion(event models.IntrusionEvent) error {
	var errs []error
	for _, r := range f.routes {
		if err := r.publisher.Publish(r.subject, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
		}
	}
	return errors.Join(errs...)
}
