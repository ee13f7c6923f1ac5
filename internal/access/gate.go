package access

import (
	"context"
	"sync"

	"github.com/studio-ops/studio-erp/internal/domain"
	"github.com/studio-ops/studio-erp/internal/session"
)

// Outcome is the result of a gate evaluation.
type Outcome int

const (
	OutcomeLoading Outcome = iota
	OutcomeDenied
	OutcomeAllowed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeDenied:
		return "denied"
	case OutcomeAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Denial reasons.
const (
	ReasonNoUser   = "no_user"
	ReasonInactive = "inactive"
	ReasonRole     = "role"
	ReasonPolicy   = "policy"
	ReasonClosed   = "closed"
)

// Decision is what a gate renders. User is set only when Outcome is OutcomeAllowed.
type Decision struct {
	Outcome Outcome
	Reason  string
	User    *domain.StaffRecord
}

func (d Decision) sameAs(other Decision) bool {
	if d.Outcome != other.Outcome || d.Reason != other.Reason {
		return false
	}
	if d.User == nil || other.User == nil {
		return d.User == other.User
	}
	return *d.User == *other.User
}

// Gate guards a view with a call-site role restriction on top of the policy table.
// Both must pass. A gate built without roles applies only the table.
type Gate struct {
	table     *Table
	permitted map[domain.StaffRole]struct{}
}

// NewGate builds a gate admitting the given roles.
func NewGate(table *Table, permitted ...domain.StaffRole) Gate {
	set := make(map[domain.StaffRole]struct{}, len(permitted))
	for _, r := range permitted {
		set[r] = struct{}{}
	}
	return Gate{table: table, permitted: set}
}

// SignedIn decides whether the snapshot holds an active user, with no role or
// policy check.
func SignedIn(st session.State) Decision {
	switch {
	case st.Phase == session.PhaseClosed:
		return Decision{Outcome: OutcomeDenied, Reason: ReasonClosed}
	case st.Pending():
		return Decision{Outcome: OutcomeLoading}
	}

	user := st.CurrentUser
	if user == nil {
		return Decision{Outcome: OutcomeDenied, Reason: ReasonNoUser}
	}
	if !user.IsActive {
		return Decision{Outcome: OutcomeDenied, Reason: ReasonInactive}
	}
	cp := *user
	return Decision{Outcome: OutcomeAllowed, User: &cp}
}

// Evaluate decides for one snapshot. No decision is made while the state is pending.
func (g Gate) Evaluate(st session.State, path string) Decision {
	d := SignedIn(st)
	if d.Outcome != OutcomeAllowed {
		return d
	}

	user := d.User
	if len(g.permitted) > 0 {
		if _, ok := g.permitted[user.Role]; !ok {
			return Decision{Outcome: OutcomeDenied, Reason: ReasonRole}
		}
	}
	if !CanAccess(g.table, user, path) {
		return Decision{Outcome: OutcomeDenied, Reason: ReasonPolicy}
	}
	return d
}

// Watch emits a decision for path now and again whenever the provider's state
// changes the outcome. The channel closes when ctx ends or the provider closes.
func (g Gate) Watch(ctx context.Context, p *session.Provider, path string) <-chan Decision {
	out := make(chan Decision)
	updates := make(chan session.State, 1)

	var pushMu sync.Mutex
	push := func(st session.State) {
		pushMu.Lock()
		defer pushMu.Unlock()
		select {
		case prev := <-updates:
			if prev.Version > st.Version {
				st = prev
			}
		default:
		}
		updates <- st
	}

	unsubscribe := p.Subscribe(push)
	push(p.State())

	go func() {
		defer close(out)
		defer unsubscribe()

		var (
			lastVersion uint64
			last        *Decision
		)
		for {
			select {
			case <-ctx.Done():
				return
			case st := <-updates:
				if last != nil && st.Version < lastVersion {
					continue
				}
				lastVersion = st.Version
				d := g.Evaluate(st, path)
				if last == nil || !last.sameAs(d) {
					select {
					case out <- d:
					case <-ctx.Done():
						return
					}
					last = &d
				}
				if st.Phase == session.PhaseClosed {
					return
				}
			}
		}
	}()
	return out
}
