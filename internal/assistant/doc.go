// Package assistant is the client for the hosted AI platform that answers
// health questions and looks up doctors.
//
// Runs may complete synchronously or return a poll URL; the client polls
// until the run completes or the configured timeout expires. Answers are
// cleaned of markdown and split into paragraphs before they are returned.
package assistant
