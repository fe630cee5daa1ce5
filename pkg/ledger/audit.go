package ledger

import (
	"fmt"
	"time"
)

// AuditReport is the outcome of one invariant audit pass.
type AuditReport struct {
	CheckedAt  time.Time
	Violations []string
}

// Clean reports whether the audit found no violations.
func (r AuditReport) Clean() bool {
	return len(r.Violations) == 0
}

// AuditInvariants re-derives the ledger's conservation and carry-forward
// invariants from current state. A violation means a bug, not a bad
// request: the engine's operations are supposed to make these unbreakable.
func (l *Ledger) AuditInvariants() AuditReport {
	l.mu.RLock()
	defer l.mu.RUnlock()

	report := AuditReport{CheckedAt: time.Now().UTC()}

	if sum, supply := l.tokens.BalancesSum(), l.tokens.TotalSupply(); !sum.Eq(supply) {
		report.Violations = append(report.Violations,
			fmt.Sprintf("token balances sum %s diverges from total supply %s", sum.Dec(), supply.Dec()))
	}
	report.Violations = append(report.Violations, l.accrual.Audit()...)
	report.Violations = append(report.Violations, l.market.Audit()...)
	return report
}
