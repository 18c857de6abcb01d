package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// Migration event names, used as the last topic segment.
const (
	EventApplied  = "applied"
	EventRollback = "rollback"
)

// LocationsPayload is the retained message on the locations topic.
type LocationsPayload struct {
	Locations []string `json:"locations"`
	Timestamp string   `json:"timestamp"`
}

// RunPayload describes a completed migration run or rollback.
type RunPayload struct {
	RunID      string   `json:"run_id"`
	Vendor     string   `json:"vendor"`
	Locations  []string `json:"locations,omitempty"`
	Scripts    []string `json:"scripts"`
	DurationMS int64    `json:"duration_ms"`
	Timestamp  string   `json:"timestamp"`
}

// PublishLocations publishes the merged migration location list as a
// retained message, so late subscribers see the list the last run used.
func (c *Client) PublishLocations(locations []string) error {
	if locations == nil {
		locations = []string{}
	}
	return c.publishJSON(Topics{}.MigrationLocations(), true, LocationsPayload{
		Locations: locations,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// PublishRun publishes a migration event (EventApplied or EventRollback).
func (c *Client) PublishRun(event string, run RunPayload) error {
	if run.Scripts == nil {
		run.Scripts = []string{}
	}
	if run.Timestamp == "" {
		run.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return c.publishJSON(Topics{}.MigrationEvent(event), false, run)
}

func (c *Client) publishJSON(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %s payload: %w", ErrPublishFailed, topic, err)
	}
	return c.Publish(topic, payload, byte(c.cfg.QoS), retained)
}
