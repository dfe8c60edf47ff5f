// Package feed delivers task change events to subscribers scoped by owner
// and document.
//
// A Broker fans events out to per-subscriber buffered channels. Publishing
// never blocks: an event that does not fit in a subscriber's buffer is
// dropped for that subscriber, who recovers by re-reading the task.
// NotifyingTaskStore produces events from store writes. RedisPublisher and
// RedisRelay carry events between processes over Redis pub/sub.
package feed
