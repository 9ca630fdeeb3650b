// Package textutil provides small text helpers shared by script handling and
// media ranking.
//
// Fingerprints are term-frequency vectors built from lowercase alphanumeric
// tokens (three characters or longer, common stopwords removed). The lexical
// similarity scorer compares a slot's target description against candidate
// descriptions with CosineSimilarity, optionally weighting terms by IDF across
// the candidate set.
package textutil
