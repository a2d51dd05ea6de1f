// Package conveyor provides an asynchronous message and job queue layer
// for Go on top of a log-structured broker that only supports append and
// poll.
//
// Conveyor is designed as a library. Pick a broker, build the engine,
// and publish or consume envelopes from ordinary Go functions.
//
// # Quick Start
//
//	cfg := conveyor.DefaultConfig()
//	b, err := rest.New(rest.Config{URL: url, Username: user, Password: pass})
//	eng := engine.New(cfg, b, featureflag.Static{"conveyor-queue": true})
//
//	res := eng.Producer("").Produce(ctx, message.TopicExecution, payload)
//
// # Architecture
//
// Components are layered leaf-first: message (envelopes and topics),
// producer (publish with backoff), consumer (batch processing with
// retry-to-DLQ escalation), dlq (inspection, replay, triage) and
// jobqueue (job states, priorities, singleton keys and scheduled
// retries over topics). The engine package gates every component behind
// a feature flag and hands out no-op stand-ins when the flag is off.
//
// All entity IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package conveyor
