package main

import (
	"killsrp/killmail"

	lru "github.com/hashicorp/golang-lru/v2"
)

type submissionKey struct {
	source killmail.Source
	url    string
}

var submissionCache, _ = lru.New[submissionKey, bool](1024)

// isSubmissionSeen reports whether the same source and URL were already taken
// up recently, marking them as seen either way.
func isSubmissionSeen(source killmail.Source, url string) bool {
	ok, _ := submissionCache.ContainsOrAdd(submissionKey{source: source, url: url}, true)
	return ok
}

// forgetSubmission lets a failed submission be retried.
func forgetSubmission(source killmail.Source, url string) {
	submissionCache.Remove(submissionKey{source: source, url: url})
}
