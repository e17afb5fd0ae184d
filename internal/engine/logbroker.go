package engine

import "sync"

const (
	// subscriberBufferSize is the channel buffer for each log subscriber.
	// Lines are dropped if a subscriber falls this far behind.
	subscriberBufferSize = 256

	// backlogSize is how many recent lines a job keeps for subscribers that
	// join after the pipeline started printing.
	backlogSize = 200
)

// LogBroker fans out pipeline output lines per job. It is safe for
// concurrent use.
//
// Each job keeps a bounded backlog that is replayed to new subscribers, so a
// client that connects after the job finished still sees its last lines
// before the stream closes.
type LogBroker struct {
	mu     sync.Mutex
	topics map[string]*logTopic
}

type logTopic struct {
	subs    map[int]chan string
	nextID  int
	backlog []string
	closed  bool
}

// NewLogBroker creates a new log broker.
func NewLogBroker() *LogBroker {
	return &LogBroker{
		topics: make(map[string]*logTopic),
	}
}

func (b *LogBroker) topic(jobID string) *logTopic {
	t, ok := b.topics[jobID]
	if !ok {
		t = &logTopic{subs: make(map[int]chan string)}
		b.topics[jobID] = t
	}
	return t
}

// Subscribe returns a channel that receives the job's backlog followed by
// live lines, and an unsubscribe function. The channel is closed once the
// job finishes.
func (b *LogBroker) Subscribe(jobID string) (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(jobID)
	ch := make(chan string, subscriberBufferSize+backlogSize)
	for _, line := range t.backlog {
		ch <- line
	}
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends a line to all subscribers of the job and appends it to the
// backlog. Lines are dropped for subscribers whose buffers are full.
func (b *LogBroker) Publish(jobID string, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(jobID)
	if t.closed {
		return
	}

	if len(t.backlog) == backlogSize {
		copy(t.backlog, t.backlog[1:])
		t.backlog = t.backlog[:backlogSize-1]
	}
	t.backlog = append(t.backlog, line)

	for _, ch := range t.subs {
		select {
		case ch <- line:
		default:
			// Drop line for slow subscribers to avoid blocking the pipeline reader.
		}
	}
}

// Close signals that no more lines will be published for the job. All
// subscriber channels are closed; later subscribers receive the backlog and
// then a closed channel.
func (b *LogBroker) Close(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.topic(jobID)
	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}

// Backlog returns a copy of the job's retained lines.
func (b *LogBroker) Backlog(jobID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[jobID]
	if !ok {
		return nil
	}
	return append([]string(nil), t.backlog...)
}
