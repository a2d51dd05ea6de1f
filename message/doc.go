// Package message defines the wire format shared by every component: the
// closed set of topics, the Envelope that wraps each payload, and the
// DeadLetter record that wraps an envelope whose handler failed past the
// retry ceiling.
//
// # Wire format
//
// An envelope travels as a JSON object:
//
//	{"id":"msg_…","topic":"execution-queue","data":{…},"timestamp":1700000000000,
//	 "retryCount":2,"idempotencyKey":"order-42"}
//
// A dead letter is carried as the data of an outer envelope addressed to
// the DLQ topic:
//
//	{"originalMessage":{…},"errorReason":"boom","failedAt":1700000000000,
//	 "originalTopic":"execution-queue"}
//
// The idempotency key is carried but never enforced here; downstream
// consumers own deduplication.
package message
