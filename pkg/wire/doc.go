// Package wire defines the inbound wire format for broker notifications.
//
// Notifications arrive as a minimal HTTP/1.x-shaped message: a start line,
// "Name: Value" header lines, a blank line, then a body of exactly the
// declared length. MessageReader reassembles such a message from
// arbitrarily-fragmented chunks as they come off a transport.
//
// The body is JSON in the broker's normalized entity form. Entity,
// Attribute and Metadata model that form; ParseNotification decodes a
// complete body into either a full-entity or an attribute-diff
// notification.
//
// # Known Limitation
//
// The reader assumes the body length is declared up front. There is no
// chunked-transfer decoding; a message without a length header is treated
// as having an empty body.
package wire
