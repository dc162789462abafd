package differ

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const maxDigestLen = 200

// AuditSummary condenses a markup diff between two evidence fragments.
type AuditSummary struct {
	FragmentsAdded   int
	FragmentsDeleted int
	IsIdentical      bool
	// Digest is a short human-readable rendering of the inserted and
	// deleted runs, truncated for log lines.
	Digest string
}

// EvidenceAuditor diffs the raw markup captured for a slot across cycles.
type EvidenceAuditor struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewEvidenceAuditor creates an evidence auditor.
func NewEvidenceAuditor() *EvidenceAuditor {
	return &EvidenceAuditor{dmp: diffmatchpatch.New()}
}

// Audit diffs two evidence fragments and summarizes the drift.
func (a *EvidenceAuditor) Audit(previous, current string) AuditSummary {
	diffs := a.dmp.DiffMain(previous, current, false)
	diffs = a.dmp.DiffCleanupSemantic(diffs)

	summary := AuditSummary{IsIdentical: true}
	var digest strings.Builder

	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			summary.FragmentsAdded++
			summary.IsIdentical = false
			appendDigest(&digest, "+", diff.Text)
		case diffmatchpatch.DiffDelete:
			summary.FragmentsDeleted++
			summary.IsIdentical = false
			appendDigest(&digest, "-", diff.Text)
		}
	}

	summary.Digest = truncate(digest.String(), maxDigestLen)
	return summary
}

func appendDigest(b *strings.Builder, marker, text string) {
	if b.Len() > maxDigestLen {
		return
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(marker)
	b.WriteString(strings.Join(strings.Fields(text), " "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
