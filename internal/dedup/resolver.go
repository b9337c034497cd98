// Package dedup decides the fate of every record in a feed run: insert it,
// skip it as a known duplicate, or close stored jobs the feed no longer
// carries. The decision is pure; all store access happens in the caller.
package dedup

import (
	"github.com/Ashutoshmitra/job-platform/internal/models"
)

// StoredJob is the (id, hash) pair the store reports for an active job.
type StoredJob struct {
	ExternalJobID string
	ContentHash   string
}

// Resolution partitions one run into three disjoint outcomes.
type Resolution struct {
	ToInsert []models.CanonicalJob
	ToSkip   []models.CanonicalJob
	ToClose  []StoredJob
}

// Resolve compares the hashed records of one run against the store.
//
// knownHashes answers "is this content hash anywhere in the store"; feedJobs
// lists the active jobs previously ingested for the same feed/source, which
// scopes closure — a run over feed A never closes jobs from feed B.
//
// When two records inside the run share a hash, the first by input order is
// kept and later ones are skipped, so re-running the same snapshot is a no-op.
func Resolve(run []models.CanonicalJob, knownHashes map[string]bool, feedJobs []StoredJob) Resolution {
	var res Resolution

	seenInRun := make(map[string]bool, len(run))
	for _, job := range run {
		h := job.ContentHash
		if seenInRun[h] || knownHashes[h] {
			res.ToSkip = append(res.ToSkip, job)
		} else {
			res.ToInsert = append(res.ToInsert, job)
		}
		seenInRun[h] = true
	}

	closed := make(map[string]bool, len(feedJobs))
	for _, stored := range feedJobs {
		if seenInRun[stored.ContentHash] || closed[stored.ContentHash] {
			continue
		}
		closed[stored.ContentHash] = true
		res.ToClose = append(res.ToClose, stored)
	}

	return res
}
