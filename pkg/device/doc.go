// Package device holds the shared model of the monitored garage door.
//
// # Identity
//
// A device is identified by a stable UUID and a device-target string of the
// form urn:schemas-upnp-org:device:RPi_Garage_Monitor:<index>. The pair tags
// every discovery response and status message and never changes after
// startup. Several instances may run side by side as long as each uses its
// own index.
//
// # State
//
// The door is in one of three states: unknown, open or closed. The process
// starts in unknown; after the first sensor reading the state only moves
// between open and closed. A Cell holds the single current value that the
// monitor writes and the HTTP endpoint reads.
//
// # Status Message
//
// Both the poll response and outbound notifications carry the same body:
//
//	<msg><cmd>status-open</cmd><usn>uuid:<uuid>::<target></usn></msg>
//
// An unknown state is reported as status-open.
package device
