// Package mqtt publishes schemaloc events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - The migration event payloads
//
// # Topics
//
//	schemaloc/system/status              online/offline (retained, LWT)
//	schemaloc/migrations/locations       merged location list (retained)
//	schemaloc/migrations/event/applied   one message per migration run
//	schemaloc/migrations/event/rollback  one message per rollback
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishLocations(settings.Locations())
package mqtt
