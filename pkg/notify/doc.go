// Package notify pushes door state changes to subscribed hubs.
//
// For every active subscriber the Notifier sends one POST whose body is the
// status message and whose Content-Length matches the body. Sends run in
// their own goroutines; one slow or failing hub never delays another.
//
// # Hub Behaviour
//
// The hub accepts the POST but closes the connection without ever writing an
// HTTP response. The resulting transport error is expected and is logged at
// debug level. Which errors count as expected is decided by Config.IsExpected;
// the default is IsConnectionClosed.
//
// A response that does carry a status code is itself anomalous for this hub
// and is logged as an error, as is any other failure. Nothing is retried.
package notify
