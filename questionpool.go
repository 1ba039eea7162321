package papergenerator

import (
	"sort"
	"sync"
)

// poolKey groups replacement candidates by subject and question type
type poolKey struct {
	Subject string
	Type    QuestionType
}

// poolRecord wraps a bank question with its consumed marker. Records are
// never removed from the arena; drawing only flips the marker, so a record
// can be handed out at most once per run.
type poolRecord struct {
	question QuestionRecord
	consumed bool
}

// poolQueue is one FIFO of replacement candidates. Each queue carries its
// own mutex so draws for unrelated (subject, type) pairs never contend.
type poolQueue struct {
	mu      sync.Mutex
	records []*poolRecord
}

// draw returns the next unconsumed record in the queue, or nil
func (pq *poolQueue) draw() *QuestionRecord {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	for _, rec := range pq.records {
		if !rec.consumed {
			rec.consumed = true
			q := rec.question
			return &q
		}
	}
	return nil
}

func (pq *poolQueue) remaining() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	n := 0
	for _, rec := range pq.records {
		if !rec.consumed {
			n++
		}
	}
	return n
}

// QuestionPool is the read-only supply of unused candidate questions used
// for replacing discarded ones. The pipeline never writes questions back;
// the pool only shrinks within a run and is rebuilt between runs.
type QuestionPool struct {
	mu     sync.RWMutex
	queues map[poolKey]*poolQueue
}

// NewQuestionPool builds a pool from the unselected remainder of the bank.
// Every record must already have passed ingestion validation.
func NewQuestionPool(questions []QuestionRecord) *QuestionPool {
	qp := &QuestionPool{
		queues: make(map[poolKey]*poolQueue),
	}
	for _, q := range questions {
		key := poolKey{Subject: q.Subject, Type: q.Type}
		queue, ok := qp.queues[key]
		if !ok {
			queue = &poolQueue{}
			qp.queues[key] = queue
		}
		queue.records = append(queue.records, &poolRecord{question: q})
	}
	return qp
}

// Draw hands out the next unconsumed replacement for a discarded question.
// Preference order: exact (subject, type) match, then same subject with any
// type, then any subject. Returns nil when the pool is fully exhausted; the
// caller keeps the original question in that case so no slot is dropped.
func (qp *QuestionPool) Draw(subject string, qtype QuestionType) *QuestionRecord {
	qp.mu.RLock()
	defer qp.mu.RUnlock()

	if queue, ok := qp.queues[poolKey{Subject: subject, Type: qtype}]; ok {
		if q := queue.draw(); q != nil {
			return q
		}
	}

	for _, key := range qp.sortedKeys() {
		if key.Subject != subject || key.Type == qtype {
			continue
		}
		if q := qp.queues[key].draw(); q != nil {
			return q
		}
	}

	for _, key := range qp.sortedKeys() {
		if key.Subject == subject {
			continue
		}
		if q := qp.queues[key].draw(); q != nil {
			return q
		}
	}

	return nil
}

// sortedKeys keeps the tier fallback deterministic across runs. Callers must
// hold at least a read lock.
func (qp *QuestionPool) sortedKeys() []poolKey {
	keys := make([]poolKey, 0, len(qp.queues))
	for key := range qp.queues {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Subject != keys[j].Subject {
			return keys[i].Subject < keys[j].Subject
		}
		return keys[i].Type < keys[j].Type
	})
	return keys
}

// Remaining returns the number of unconsumed records across all queues
func (qp *QuestionPool) Remaining() int {
	qp.mu.RLock()
	defer qp.mu.RUnlock()

	n := 0
	for _, queue := range qp.queues {
		n += queue.remaining()
	}
	return n
}

// IsEmpty returns true if no unconsumed records remain
func (qp *QuestionPool) IsEmpty() bool {
	return qp.Remaining() == 0
}
