// Package bridge runs the actors that move traffic between the bus and the
// broker.
//
// Ownership boundary:
// - BusManager owns the bus transport and the identifier route table
// - BrokerManager owns the broker client and the topic route table
// - BusReader and BrokerIngress feed inbound traffic into the managers
// - Watcher turns change signals into route generations for both managers
//
// Actors talk only through bounded channels. A send into a full inbox
// blocks until the consumer drains it or the context ends.
package bridge
