package facematch

// MatchResult is the outcome of matching one query embedding.
// When Matched is false, StudentID holds the closest candidate (if any) for
// near-miss diagnostics and Score its similarity.
type MatchResult struct {
	StudentID int64
	Score     float64
	Matched   bool
}

// Match finds the enrolled (student, vector) pair most similar to query.
// Every vector of every student is compared; on ties the first maximum in
// ascending student order wins. The best pair is a match only when its score
// reaches threshold. An empty directory never matches and reports score -1.
func Match(query Vector, dir *Directory, threshold float64) MatchResult {
	best := MatchResult{Score: -1}
	found := false

	for _, id := range dir.IDs() {
		for _, vec := range dir.Vectors(id) {
			score := CosineSimilarity(query, vec)
			if score > best.Score {
				best.Score = score
				best.StudentID = id
				found = true
			}
		}
	}

	best.Matched = found && best.Score >= threshold
	return best
}
