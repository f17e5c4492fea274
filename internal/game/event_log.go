package game

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"asteroid-arena/internal/config"
)

const (
	BatchFlushSize     = 64                     // Events per batch write
	BatchFlushInterval = 250 * time.Millisecond // How often to flush
)

// EventLog is a bounded, rate-limited journal of what the client saw and
// did. Recent events stay in a ring buffer for the debug server; when a
// file is configured they are also appended as JSON lines.
type EventLog struct {
	mu       sync.Mutex
	buffer   []Event
	next     uint64 // Sequence of the next event
	flushed  uint64 // Sequence up to which events were written
	capacity uint64

	globalLimiter   *rate.Limiter
	channelLimiters map[string]*rate.Limiter
	channelRate     rate.Limit
	channelBurst    int

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	file *os.File

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

// NewEventLog creates a journal sized by cfg.
func NewEventLog(cfg config.JournalConfig) *EventLog {
	size := cfg.BufferSize
	if size <= 0 {
		size = 1024
	}
	perSec := cfg.EventsPerSecond
	if perSec <= 0 {
		perSec = 500
	}
	burst := cfg.ChannelBurst
	if burst <= 0 {
		burst = 50
	}
	return &EventLog{
		buffer:          make([]Event, size),
		capacity:        uint64(size),
		globalLimiter:   rate.NewLimiter(rate.Limit(perSec), int(perSec)),
		channelLimiters: make(map[string]*rate.Limiter),
		channelRate:     rate.Limit(perSec / 10),
		channelBurst:    burst,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the async writer when filePath is set. Events are recorded
// in memory either way.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}
	if filePath == "" {
		el.running.Store(true)
		return nil
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	el.file = file
	el.running.Store(true)

	el.writerWg.Add(1)
	go el.writerLoop()
	return nil
}

// Stop flushes pending events and closes the file.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		close(el.stopChan)
		el.writerWg.Wait()
		el.running.Store(false)
		if el.file != nil {
			el.file.Close()
		}
	})
}

// Emit records event unless a limiter rejects it.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}
	if event.Channel != "" {
		lim, ok := el.channelLimiters[event.Channel]
		if !ok {
			lim = rate.NewLimiter(el.channelRate, el.channelBurst)
			el.channelLimiters[event.Channel] = lim
		}
		if !lim.Allow() {
			atomic.AddUint64(&el.droppedCount, 1)
			return false
		}
	}

	event.Sequence = el.next
	el.buffer[el.next%el.capacity] = event
	el.next++

	if el.file == nil {
		el.flushed = el.next
	} else if el.next-el.flushed > el.capacity {
		// Overwritten before the writer saw it
		el.flushed = el.next - el.capacity
		atomic.AddUint64(&el.droppedCount, 1)
	}

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitSimple creates and records an event.
func (el *EventLog) EmitSimple(eventType EventType, frame uint64, channel string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, frame, channel, payload))
}

// Recent returns up to n of the newest events, oldest first.
func (el *EventLog) Recent(n int) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	avail := el.next
	if avail > el.capacity {
		avail = el.capacity
	}
	if uint64(n) > avail || n <= 0 {
		n = int(avail)
	}
	out := make([]Event, 0, n)
	for seq := el.next - uint64(n); seq < el.next; seq++ {
		out = append(out, el.buffer[seq%el.capacity])
	}
	return out
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	w := bufio.NewWriter(el.file)
	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					break
				}
				el.flushBatch(w, batch)
			}
			w.Flush()
			return
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(w, batch)
				w.Flush()
			}
		}
	}
}

func (el *EventLog) collectBatch(batch []Event) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	for el.flushed < el.next && len(batch) < BatchFlushSize {
		batch = append(batch, el.buffer[el.flushed%el.capacity])
		el.flushed++
	}
	return batch
}

// flushBatch appends newline-delimited JSON.
func (el *EventLog) flushBatch(w *bufio.Writer, batch []Event) {
	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		w.Write(data)
		w.WriteByte('\n')
	}
}

// GetStats returns counters for the metrics exporter.
func (el *EventLog) GetStats() map[string]interface{} {
	el.mu.Lock()
	pending := el.next - el.flushed
	el.mu.Unlock()

	return map[string]interface{}{
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"pending": pending,
		"running": el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&el.droppedCount)
}

// GetTotalCount returns the total number of events recorded
func (el *EventLog) GetTotalCount() uint64 {
	return atomic.LoadUint64(&el.totalCount)
}
