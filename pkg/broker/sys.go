package broker

import "strconv"

// $SYS topic layout follows mosquitto; other brokers publish a compatible
// subset.
const (
	sysClientsConnected = "$SYS/broker/clients/connected"
	sysMessagesReceived = "$SYS/broker/messages/received"
	sysMessagesSent     = "$SYS/broker/messages/sent"
	sysSubscriptions    = "$SYS/broker/subscriptions/count"
	sysUptime           = "$SYS/broker/uptime"
)

// applySysTopic folds one $SYS message into the snapshot. Topics outside
// the tracked subset are ignored.
func applySysTopic(snap *Snapshot, topic, payload string) {
	switch topic {
	case sysClientsConnected:
		if n, err := strconv.ParseInt(payload, 10, 64); err == nil {
			snap.ClientsConnected = n
		}
	case sysMessagesReceived:
		if n, err := strconv.ParseInt(payload, 10, 64); err == nil {
			snap.MessagesReceived = n
		}
	case sysMessagesSent:
		if n, err := strconv.ParseInt(payload, 10, 64); err == nil {
			snap.MessagesSent = n
		}
	case sysSubscriptions:
		if n, err := strconv.ParseInt(payload, 10, 64); err == nil {
			snap.SubscriptionsCnt = n
		}
	case sysUptime:
		snap.Uptime = payload
	}
}
