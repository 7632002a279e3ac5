// Package kafka configures sarama clients for the replication cluster.
//
// The console reads the replica_status topic through a consumer group, produces
// notifications to a topic of its own and inspects sink topics (partitions and
// replication factor) through the cluster admin API. All of them share one Config,
// which supports SASL/SCRAM (sha256, sha512) and TLS.
package kafka
