package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Event marks one scheduled firing of the pipeline.
type Event struct {
	Workflow  string
	Timestamp time.Time
}

// Cron emits an Event on the configured schedule until the context is done
// or Stop is called.
type Cron struct {
	workflow string
	schedule string
	timezone string
	cron     *cron.Cron
	events   chan Event
}

func NewCron(workflow, schedule, timezone string) (*Cron, error) {
	if schedule == "" {
		return nil, fmt.Errorf("cron schedule is required")
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone: %w", err)
		}
	}
	return &Cron{workflow: workflow, schedule: schedule, timezone: timezone}, nil
}

func (c *Cron) Start(ctx context.Context) (<-chan Event, error) {
	location := time.UTC
	if c.timezone != "" {
		tz, err := time.LoadLocation(c.timezone)
		if err != nil {
			return nil, err
		}
		location = tz
	}

	c.events = make(chan Event, 1)
	c.cron = cron.New(cron.WithLocation(location))
	_, err := c.cron.AddFunc(c.schedule, func() {
		// drop the tick if the previous run is still in flight
		select {
		case c.events <- Event{Workflow: c.workflow, Timestamp: time.Now().UTC()}:
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("register cron schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return c.events, nil
}

func (c *Cron) Stop() error {
	if c.cron != nil {
		ctx := c.cron.Stop()
		<-ctx.Done()
		c.cron = nil
	}
	if c.events != nil {
		close(c.events)
		c.events = nil
	}
	return nil
}
