// Package influxdb records notice telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Points are batched,
// written at millisecond precision and tagged with a "source" host tag.
//
// # Purpose
//
// Two measurements are written:
//   - notice_messages: one point per received notification, tagged by topic
//     and sender, with payload size and delivery latency
//   - notice_connection: one point per connection state change
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	notice.WithObservers(client)            // messages
//	emitter := notice.Emitters(hub, client) // connection state
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Writes never block the caller. Failed batches are counted in Stats and
// logged at most once a minute. Connection and health check errors are
// returned directly.
package influxdb
