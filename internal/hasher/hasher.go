// Package hasher computes the content identity of a job. Two postings with
// the same company, title, description and employment type are the same job,
// no matter which feed they arrived from, which id the source assigned, or
// how the location text differs.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/Ashutoshmitra/job-platform/internal/models"
)

var whitespace = regexp.MustCompile(`\s+`)

// fieldSeparator keeps field boundaries unambiguous in the digest input so
// ("AB","C") and ("A","BC") never collide.
const fieldSeparator = "\x1f"

// normalize lowercases, trims and collapses internal whitespace runs so
// cosmetic variants of the same content produce the same hash. Intentional
// fuzzy matching, not a bug.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(whitespace.ReplaceAllString(s, " ")))
}

// ContentHash returns the hex SHA-256 digest of the four identity fields.
// Pure and deterministic; it ignores ids, locations and posting dates.
func ContentHash(job models.CanonicalJob) string {
	parts := []string{
		normalize(job.CompanyName),
		normalize(job.Title),
		normalize(job.Description),
		normalize(job.EmploymentType),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, fieldSeparator)))
	return hex.EncodeToString(sum[:])
}
