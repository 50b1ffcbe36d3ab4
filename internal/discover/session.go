package discover

import "sync/atomic"

// Session accumulates counters for one discovery run. Strategies run
// concurrently and the fetch and normalize hooks fire from their
// goroutines, so every counter is atomic.
type Session struct {
	requests         atomic.Int64
	classified       atomic.Int64
	dropped          atomic.Int64
	duplicates       atomic.Int64
	created          atomic.Int64
	updated          atomic.Int64
	failedUpserts    atomic.Int64
	strategyFailures atomic.Int64
}

func (s *Session) CountRequest()         { s.requests.Add(1) }
func (s *Session) CountDrop()            { s.dropped.Add(1) }
func (s *Session) countClassified(n int) { s.classified.Add(int64(n)) }
func (s *Session) countDuplicate()       { s.duplicates.Add(1) }
func (s *Session) countCreated()         { s.created.Add(1) }
func (s *Session) countUpdated()         { s.updated.Add(1) }
func (s *Session) countFailedUpsert()    { s.failedUpserts.Add(1) }
func (s *Session) countStrategyFailure() { s.strategyFailures.Add(1) }

func (s *Session) Requests() int         { return int(s.requests.Load()) }
func (s *Session) Classified() int       { return int(s.classified.Load()) }
func (s *Session) Dropped() int          { return int(s.dropped.Load()) }
func (s *Session) Duplicates() int       { return int(s.duplicates.Load()) }
func (s *Session) Created() int          { return int(s.created.Load()) }
func (s *Session) Updated() int          { return int(s.updated.Load()) }
func (s *Session) FailedUpserts() int    { return int(s.failedUpserts.Load()) }
func (s *Session) StrategyFailures() int { return int(s.strategyFailures.Load()) }
