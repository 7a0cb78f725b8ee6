package engine

// maxSends is the per-Resolve work budget (spec.md §3, §4.1.6).
const maxSends = 100

// budget enforces the per-Resolve work limit. A fresh budget is created by
// every call to Resolve, including nested calls spawned by SOA or
// authority-name resolution (R2/R4/R5) — it is never shared across
// top-level Resolve invocations, and it is never touched by goroutines
// other than the one running that Resolve call.
type budget struct {
	count int
}

// send increments the counter and reports Overrun if the budget is
// exceeded. It must be called immediately before every transport send.
func (b *budget) send() error {
	b.count++
	if b.count > maxSends {
		return ErrOverrun
	}
	return nil
}
