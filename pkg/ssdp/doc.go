// Package ssdp implements the multicast discovery side of the garage monitor.
//
// Hubs locate the device by multicasting an M-SEARCH datagram to
// 239.255.255.250:1900. The Responder answers matching searches with a
// unicast datagram carrying the status URL and the device USN:
//
//	HTTP/1.1 200 OK
//	CACHE-CONTROL:max-age=30
//	EXT:
//	LOCATION:http://<ip>:<port>/status
//	SERVER:Linux, UPnP/1.0, Pi_Garage/1.0
//	ST:<search target>
//	USN:uuid:<uuid>::<device target>
//
// The response is not terminated by a blank line. Hubs in the field accept
// this form and it is kept byte for byte.
//
// Only "M-SEARCH *" requests are answered, and only when the ST header is a
// substring of the device target. A search without an ST header therefore
// matches every device.
package ssdp
