// Package monitor owns the polling state machine. A Monitor runs at most
// one background loop per process; each cycle checks the blog for a new
// post, pushes it through extraction, summarization, and delivery, and
// advances the processed marker only when the whole pipeline succeeds.
//
// Start and Stop are idempotent. Stop is cooperative: it never interrupts
// a cycle in flight, it only prevents the next one from starting.
package monitor
