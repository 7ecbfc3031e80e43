// Package notice decodes inbound notification payloads and fans them out.
//
// A notification travels as a JSON object on the broker:
//
//	{
//	  "title": "Build finished",
//	  "content": "main is green",
//	  "extra": {"url": "https://ci.example.com/42"},
//	  "timestamp": "2024-05-01T12:00:00Z",
//	  "client": "ci"
//	}
//
// "extra" and "client" are optional. "timestamp" accepts an RFC 3339 string
// or a Unix time number in seconds or milliseconds.
//
// The Dispatcher turns each decoded message into a "message" event for the
// UI, a desktop notification request and calls to any registered observers
// (history, exec hook, telemetry). Undecodable payloads are logged and dropped.
package notice
