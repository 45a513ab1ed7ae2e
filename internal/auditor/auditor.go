package auditor

import (
	"context"
	"log"
	"time"

	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// Auditor rebuilds conversation aggregates from the message log and corrects
// drift. It reads the log, writes only aggregate columns, and never sits on
// the request path: the counters it heals are a cache, not ground truth.
type Auditor struct {
	conversations repositories.ConversationRepository
	batch         int
}

// New constructs an Auditor that scans ids in batches of the given size.
func New(conversations repositories.ConversationRepository, batch int) *Auditor {
	if batch <= 0 {
		batch = 200
	}
	return &Auditor{conversations: conversations, batch: batch}
}

// ReconcileAll sweeps every conversation once and returns how many needed
// correction.
func (a *Auditor) ReconcileAll(ctx context.Context) (int, error) {
	corrected := 0
	afterID := int64(0)
	for {
		ids, err := a.conversations.ListIDs(ctx, afterID, a.batch)
		if err != nil {
			return corrected, err
		}
		if len(ids) == 0 {
			return corrected, nil
		}
		for _, id := range ids {
			drifted, err := a.reconcileOne(ctx, id)
			if err != nil {
				log.Printf("audit reconcile failed conversation_id=%d: %v", id, err)
				continue
			}
			if drifted {
				corrected++
			}
		}
		afterID = ids[len(ids)-1]
	}
}

// reconcileOne recomputes one conversation and reports whether the stored
// aggregates had drifted from the log.
func (a *Auditor) reconcileOne(ctx context.Context, conversationID int64) (bool, error) {
	before, err := a.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return false, err
	}
	after, err := a.conversations.RecomputeAggregates(ctx, conversationID)
	if err != nil {
		return false, err
	}

	drifted := before.TotalMessageCount != after.TotalMessageCount ||
		before.CandidateUnreadCount != after.CandidateUnreadCount ||
		before.RecruiterUnreadCount != after.RecruiterUnreadCount ||
		before.LastMessageText != after.LastMessageText
	if drifted {
		observability.IncAuditDrift()
		log.Printf("audit corrected drift conversation_id=%d total=%d->%d candidate_unread=%d->%d recruiter_unread=%d->%d",
			conversationID,
			before.TotalMessageCount, after.TotalMessageCount,
			before.CandidateUnreadCount, after.CandidateUnreadCount,
			before.RecruiterUnreadCount, after.RecruiterUnreadCount)
	}
	return drifted, nil
}

// Run is the in-process fallback scheduler: a plain ticker loop used when no
// Redis queue is configured.
func (a *Auditor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("auditor running in-process interval=%s", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			corrected, err := a.ReconcileAll(ctx)
			if err != nil {
				log.Printf("audit sweep failed: %v", err)
				continue
			}
			if corrected > 0 {
				log.Printf("audit sweep corrected %d conversations", corrected)
			}
		}
	}
}
