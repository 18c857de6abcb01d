package mqtt

import "fmt"

// Topic prefixes for schemaloc.
//
// Everything schemaloc publishes lives under schemaloc/{area}/...
const (
	// TopicPrefix is the base for all schemaloc topics.
	TopicPrefix = "schemaloc"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"

	// TopicPrefixMigrations is the base for migration topics.
	TopicPrefixMigrations = TopicPrefix + "/migrations"
)

// Topics provides builders for schemaloc MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.MigrationEvent("applied")
//	// Returns: "schemaloc/migrations/event/applied"
type Topics struct{}

// SystemStatus returns the topic for online/offline status. The LWT is
// published here.
//
// Example: schemaloc/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// MigrationLocations returns the retained topic carrying the merged
// migration location list.
//
// Example: schemaloc/migrations/locations
func (Topics) MigrationLocations() string {
	return TopicPrefixMigrations + "/locations"
}

// MigrationEvent returns the topic for a migration event.
//
// Example: schemaloc/migrations/event/applied
func (Topics) MigrationEvent(event string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixMigrations, event)
}

// AllMigrationEvents returns a wildcard matching every migration event.
//
// Example: schemaloc/migrations/event/+
func (Topics) AllMigrationEvents() string {
	return TopicPrefixMigrations + "/event/+"
}
