package mqtt

import "log"

// bufferedMsg is a serialized message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// offlineQueue holds the most recent messages published while disconnected.
// When full the oldest message is discarded. Not safe for concurrent use.
type offlineQueue struct {
	slots   []bufferedMsg
	first   int // index of the oldest message
	n       int
	dropped uint64 // discarded since the last takeAll
}

func newOfflineQueue(capacity int) *offlineQueue {
	return &offlineQueue{slots: make([]bufferedMsg, capacity)}
}

func (q *offlineQueue) add(msg bufferedMsg) {
	if len(q.slots) == 0 {
		q.dropped++
		return
	}
	if q.n < len(q.slots) {
		q.slots[(q.first+q.n)%len(q.slots)] = msg
		q.n++
		return
	}
	if q.dropped == 0 {
		log.Printf("mqtt: offline queue full (%d messages), discarding oldest", len(q.slots))
	}
	q.slots[q.first] = msg
	q.first = (q.first + 1) % len(q.slots)
	q.dropped++
}

// takeAll empties the queue and returns its messages oldest first (nil if
// empty) and how many were discarded since the previous call.
func (q *offlineQueue) takeAll() ([]bufferedMsg, uint64) {
	dropped := q.dropped
	q.dropped = 0
	if q.n == 0 {
		return nil, dropped
	}
	out := make([]bufferedMsg, 0, q.n)
	for i := 0; i < q.n; i++ {
		out = append(out, q.slots[(q.first+i)%len(q.slots)])
		q.slots[(q.first+i)%len(q.slots)] = bufferedMsg{}
	}
	q.first, q.n = 0, 0
	return out, dropped
}

func (q *offlineQueue) size() int {
	return q.n
}
